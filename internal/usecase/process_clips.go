package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shanyukollipara/clips-ai/internal/domain/entity"
	"github.com/shanyukollipara/clips-ai/internal/domain/grading"
	"github.com/shanyukollipara/clips-ai/internal/domain/port"
	"github.com/shanyukollipara/clips-ai/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProcessClipsUseCase runs the clip generation pipeline for one job:
// transcript fetch, moment analysis, media download, per-moment clip
// extraction, persistence. Stage order is fixed and every stage error
// is terminal for the job; only per-clip extraction failures are
// tolerated, as long as at least one clip renders.
type ProcessClipsUseCase struct {
	repo       port.Repository
	transcript port.TranscriptSource
	analyzer   port.MomentAnalyzer
	fetcher    port.MediaFetcher
	extractor  port.ClipExtractor
	storage    port.BlobStore       // optional, nil means local-only clips
	status     port.StatusPublisher
	dlq        port.DLQPublisher
	notifier   port.FailureNotifier // optional
	logger     *zap.Logger
	tempDir    string
	clipsDir   string
}

type ProcessClipsConfig struct {
	TempDir  string
	ClipsDir string
}

func NewProcessClipsUseCase(
	repo port.Repository,
	transcript port.TranscriptSource,
	analyzer port.MomentAnalyzer,
	fetcher port.MediaFetcher,
	extractor port.ClipExtractor,
	storage port.BlobStore,
	status port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessClipsConfig,
) *ProcessClipsUseCase {
	return &ProcessClipsUseCase{
		repo:       repo,
		transcript: transcript,
		analyzer:   analyzer,
		fetcher:    fetcher,
		extractor:  extractor,
		storage:    storage,
		status:     status,
		dlq:        dlq,
		notifier:   notifier,
		logger:     logger,
		tempDir:    cfg.TempDir,
		clipsDir:   cfg.ClipsDir,
	}
}

func (uc *ProcessClipsUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessClipsUseCase.Execute")
	defer span.End()

	started := time.Now()

	var msg entity.ClipRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}
	if msg.JobID == uuid.Nil || msg.SourceURL == "" {
		uc.logger.Error("message missing required fields", zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "missing job_id or source_url")
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.source_url", msg.SourceURL),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("source_url", msg.SourceURL))

	job, err := uc.repo.FindJobByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewProcessingJob(msg.SourceURL, msg.TargetClipSeconds)
		job.ID = msg.JobID
		if err := uc.repo.CreateJob(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if job.IsTerminal() {
		log.Warn("job already terminal, skipping duplicate delivery", zap.String("status", string(job.Status)))
		return nil
	}

	if err := job.MarkProcessing(); err != nil {
		log.Error("invalid job state for processing", zap.Error(err))
		return nil
	}
	if err := uc.repo.UpdateJob(ctx, job); err != nil {
		log.Error("failed to update job to processing", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}
	uc.publishStatus(ctx, job, log)

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.runPipeline(ctx, job, started, log); err != nil {
		uc.handleFailure(ctx, job, err, log)
		return nil
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(started).Seconds())
	return nil
}

func (uc *ProcessClipsUseCase) runPipeline(ctx context.Context, job *entity.ProcessingJob, started time.Time, log *zap.Logger) error {
	tracer := otel.Tracer("usecase")

	// Dependency check
	depStart := time.Now()
	depCtx, spanDep := tracer.Start(ctx, "dependency_check")
	available := uc.extractor.IsAvailable(depCtx)
	spanDep.End()
	metrics.StageDuration.WithLabelValues(string(entity.StageDependencyCheck)).Observe(time.Since(depStart).Seconds())
	if !available {
		return entity.NewPipelineError(entity.StageDependencyCheck,
			fmt.Errorf("%w: ffmpeg not available", entity.ErrDependencyUnavailable))
	}

	// Transcript fetch
	trStart := time.Now()
	trCtx, spanTr := tracer.Start(ctx, "transcript_fetch")
	transcript, err := uc.transcript.FetchTranscript(trCtx, job.SourceURL)
	spanTr.End()
	metrics.StageDuration.WithLabelValues(string(entity.StageTranscriptFetch)).Observe(time.Since(trStart).Seconds())
	if err != nil {
		return entity.NewPipelineError(entity.StageTranscriptFetch, err)
	}
	log.Info("transcript fetched",
		zap.String("video_id", transcript.VideoID),
		zap.Int("segments", len(transcript.Segments)),
		zap.Float64("duration_seconds", transcript.DurationSeconds),
	)

	// Moment analysis
	anStart := time.Now()
	anCtx, spanAn := tracer.Start(ctx, "analysis")
	moments, err := uc.analyzer.ExtractMoments(anCtx, transcript, job.TargetClipSeconds)
	spanAn.End()
	metrics.StageDuration.WithLabelValues(string(entity.StageAnalysis)).Observe(time.Since(anStart).Seconds())
	if err != nil {
		return entity.NewPipelineError(entity.StageAnalysis, err)
	}
	if len(moments) == 0 {
		return entity.NewPipelineError(entity.StageAnalysis,
			fmt.Errorf("%w: analyzer produced no moments", entity.ErrAnalysisFailed))
	}
	log.Info("moments identified", zap.Int("count", len(moments)))

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return entity.NewPipelineError(entity.StageMediaFetch, fmt.Errorf("create workdir: %w", err))
	}
	defer os.RemoveAll(workDir)

	// Media fetch. Cleanup runs exactly once per job, whether or not
	// the download or any later stage succeeded.
	mfStart := time.Now()
	mfCtx, spanMf := tracer.Start(ctx, "media_fetch")
	mediaPath, err := uc.fetcher.FetchMedia(mfCtx, job.SourceURL, workDir)
	spanMf.End()
	metrics.StageDuration.WithLabelValues(string(entity.StageMediaFetch)).Observe(time.Since(mfStart).Seconds())
	defer func() {
		if err := uc.fetcher.Cleanup(mediaPath); err != nil {
			log.Warn("media cleanup failed", zap.Error(err))
		}
	}()
	if err != nil {
		return entity.NewPipelineError(entity.StageMediaFetch, err)
	}

	// Clip extraction. One failed clip does not fail the job.
	exStart := time.Now()
	exCtx, spanEx := tracer.Start(ctx, "clip_extraction")
	clips, failedClips := uc.extractClips(exCtx, job, moments, mediaPath, log)
	spanEx.End()
	metrics.StageDuration.WithLabelValues(string(entity.StageClipExtraction)).Observe(time.Since(exStart).Seconds())
	if len(clips) == 0 {
		return entity.NewPipelineError(entity.StageClipExtraction,
			fmt.Errorf("%w: all %d candidates failed", entity.ErrNoClipsProduced, len(moments)))
	}

	// Persistence
	psStart := time.Now()
	psCtx, spanPs := tracer.Start(ctx, "persistence")
	err = uc.repo.CreateClips(psCtx, clips)
	spanPs.End()
	metrics.StageDuration.WithLabelValues(string(entity.StagePersistence)).Observe(time.Since(psStart).Seconds())
	if err != nil {
		return entity.NewPipelineError(entity.StagePersistence,
			fmt.Errorf("%w: %v", entity.ErrPersistenceFailed, err))
	}

	stats := buildStats(clips, failedClips, time.Since(started))
	info := entity.VideoInfo{
		VideoID:            transcript.VideoID,
		Title:              transcript.Title,
		DurationSeconds:    transcript.DurationSeconds,
		TranscriptSegments: len(transcript.Segments),
	}
	if err := job.MarkCompleted(stats, info); err != nil {
		return entity.NewPipelineError(entity.StagePersistence, err)
	}
	if err := uc.repo.UpdateJob(ctx, job); err != nil {
		return entity.NewPipelineError(entity.StagePersistence,
			fmt.Errorf("%w: update job completed: %v", entity.ErrPersistenceFailed, err))
	}

	uc.publishStatus(ctx, job, log)
	metrics.ClipsProducedTotal.Add(float64(len(clips)))

	log.Info("job completed",
		zap.Int("clips", len(clips)),
		zap.Int("failed_clips", failedClips),
		zap.Float64("processing_seconds", stats.ProcessingSeconds),
	)
	return nil
}

// extractClips renders each validated moment into its own file,
// uploading to the blob store when one is configured. Clips keep their
// analysis ordering (score descending).
func (uc *ProcessClipsUseCase) extractClips(
	ctx context.Context,
	job *entity.ProcessingJob,
	moments []entity.Moment,
	mediaPath string,
	log *zap.Logger,
) ([]*entity.ViralClip, int) {
	jobClipsDir := filepath.Join(uc.clipsDir, job.ID.String())
	if err := os.MkdirAll(jobClipsDir, 0o755); err != nil {
		log.Error("failed to create clips dir", zap.Error(err))
		return nil, len(moments)
	}

	var clips []*entity.ViralClip
	failed := 0

	for i, m := range moments {
		fileName := fmt.Sprintf("clip_%02d.mp4", i+1)
		outputPath := filepath.Join(jobClipsDir, fileName)

		artifact, err := uc.extractor.CreateClip(ctx, mediaPath, m.StartSeconds, m.EndSeconds, outputPath)
		if err != nil {
			failed++
			metrics.ClipExtractionFailedTotal.Inc()
			log.Warn("clip extraction failed",
				zap.Int("moment", i+1),
				zap.Float64("start", m.StartSeconds),
				zap.Float64("end", m.EndSeconds),
				zap.Error(err),
			)
			continue
		}

		clip := &entity.ViralClip{
			ID:                uuid.New(),
			JobID:             job.ID,
			StartSeconds:      m.StartSeconds,
			EndSeconds:        m.EndSeconds,
			ViralityScore:     m.ViralityScore,
			Grade:             m.Grade,
			Justification:     m.Justification,
			EmotionalKeywords: m.EmotionalKeywords,
			UrgencyIndicators: m.UrgencyIndicators,
			MediaKey:          fmt.Sprintf("%s/%s", job.ID, fileName),
			FileSizeBytes:     artifact.FileSizeBytes,
			DurationSeconds:   artifact.DurationSeconds,
			Resolution:        artifact.Resolution,
			CreatedAt:         time.Now().UTC(),
		}

		if uc.storage != nil {
			url, err := uc.storage.UploadClip(ctx, clip.MediaKey, artifact.Path)
			if err != nil {
				// The rendered file still exists locally; keep the clip
				// and serve it from disk.
				log.Warn("clip upload failed, keeping local copy",
					zap.String("media_key", clip.MediaKey),
					zap.Error(err),
				)
			} else {
				clip.MediaURL = url
				os.Remove(artifact.Path)
			}
		}

		clips = append(clips, clip)
	}
	return clips, failed
}

func buildStats(clips []*entity.ViralClip, failedClips int, elapsed time.Duration) entity.ProcessingStats {
	scores := make([]float64, 0, len(clips))
	sum := 0.0
	topGrade := ""
	topScore := -1.0
	for _, c := range clips {
		scores = append(scores, c.ViralityScore)
		sum += c.ViralityScore
		if c.ViralityScore > topScore {
			topScore = c.ViralityScore
			topGrade = c.Grade
		}
	}

	return entity.ProcessingStats{
		TotalClips:        len(clips),
		FailedClips:       failedClips,
		AverageScore:      sum / float64(len(clips)),
		TopGrade:          topGrade,
		GradeDistribution: grading.Distribution(scores),
		ProcessingSeconds: elapsed.Seconds(),
	}
}

func (uc *ProcessClipsUseCase) handleFailure(ctx context.Context, job *entity.ProcessingJob, err error, log *zap.Logger) {
	stage := entity.StagePersistence
	if pErr, ok := err.(*entity.PipelineError); ok {
		stage = pErr.Stage
	}

	log.Error("pipeline failed", zap.String("stage", string(stage)), zap.Error(err))

	if markErr := job.MarkFailed(stage, err.Error()); markErr != nil {
		log.Error("failed to mark job failed", zap.Error(markErr))
		return
	}
	if updErr := uc.repo.UpdateJob(ctx, job); updErr != nil {
		log.Error("failed to persist job failure", zap.Error(updErr))
	}

	uc.publishStatus(ctx, job, log)
	metrics.JobsProcessedTotal.WithLabelValues("failed").Inc()
	metrics.JobsFailedByStage.WithLabelValues(string(stage)).Inc()

	if uc.notifier != nil {
		_ = uc.notifier.NotifyFailure(ctx, job.ID.String(), job.SourceURL, string(stage), err.Error())
	}
}

func (uc *ProcessClipsUseCase) publishStatus(ctx context.Context, job *entity.ProcessingJob, log *zap.Logger) {
	statusMsg := entity.JobStatusMessage{
		JobID:        job.ID,
		Status:       job.Status,
		FailedStage:  job.FailedStage,
		ErrorMessage: job.ErrorMessage,
	}
	if job.Stats != nil {
		statusMsg.TotalClips = job.Stats.TotalClips
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.status.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
