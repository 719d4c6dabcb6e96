package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shanyukollipara/clips-ai/internal/domain/entity"
	"github.com/shanyukollipara/clips-ai/internal/domain/grading"
	"github.com/shanyukollipara/clips-ai/internal/domain/port"
	"go.uber.org/zap"
)

const (
	defaultPerPage = 10
	maxPerPage     = 50
)

// Handler serves the job submission and polling API. Processing is
// asynchronous: submission only persists a pending job and enqueues a
// clip request, everything else is reads.
type Handler struct {
	repo      port.Repository
	publisher port.ClipRequestPublisher
	storage   port.BlobStore // optional, nil means clips are on local disk
	clipsDir  string
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewHandler(
	repo port.Repository,
	publisher port.ClipRequestPublisher,
	storage port.BlobStore,
	clipsDir string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		repo:      repo,
		publisher: publisher,
		storage:   storage,
		clipsDir:  clipsDir,
		validate:  validator.New(),
		logger:    logger,
	}
}

type submitRequest struct {
	YouTubeURL   string `json:"youtube_url" validate:"required,url"`
	ClipDuration int    `json:"clip_duration" validate:"omitempty,min=5,max=60"`
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "ok",
		"service": "clips-ai",
	})
}

func (h *Handler) SubmitJob(c *fiber.Ctx) error {
	req := new(submitRequest)
	if err := c.BodyParser(req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.ClipDuration == 0 {
		req.ClipDuration = 30
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, fiber.StatusBadRequest, validationMessage(err))
	}

	job := entity.NewProcessingJob(req.YouTubeURL, req.ClipDuration)
	if err := h.repo.CreateJob(c.Context(), job); err != nil {
		h.logger.Error("failed to create job", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "could not create job")
	}

	msg, _ := json.Marshal(entity.ClipRequestMessage{
		JobID:             job.ID,
		SourceURL:         job.SourceURL,
		TargetClipSeconds: job.TargetClipSeconds,
	})
	if err := h.publisher.PublishClipRequest(c.Context(), msg); err != nil {
		h.logger.Error("failed to enqueue clip request",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		return respondError(c, fiber.StatusInternalServerError, "could not enqueue job")
	}

	h.logger.Info("job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("youtube_url", job.SourceURL),
		zap.Int("clip_duration", job.TargetClipSeconds),
	)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success":       true,
		"processing_id": job.ID,
	})
}

func (h *Handler) JobStatus(c *fiber.Ctx) error {
	job, err := h.findJob(c)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(h.jobView(c.Context(), job))
}

func (h *Handler) JobResults(c *fiber.Ctx) error {
	job, err := h.findJob(c)
	if err != nil {
		return err
	}

	switch job.Status {
	case entity.JobStatusPending, entity.JobStatusProcessing:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   "job is not finished yet",
			"status":  job.Status,
		})
	case entity.JobStatusFailed:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success":       true,
			"processing_id": job.ID,
			"status":        job.Status,
			"failed_stage":  job.FailedStage,
			"error_message": job.ErrorMessage,
		})
	}

	clips, err := h.repo.ListClipsByJob(c.Context(), job.ID)
	if err != nil {
		h.logger.Error("failed to list clips", zap.String("job_id", job.ID.String()), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "could not retrieve clips")
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", defaultPerPage)
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(clips) {
		start = len(clips)
	}
	if end > len(clips) {
		end = len(clips)
	}

	views := make([]fiber.Map, 0, end-start)
	for _, clip := range clips[start:end] {
		views = append(views, clipView(clip))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":       true,
		"processing_id": job.ID,
		"status":        job.Status,
		"clips":         views,
		"aggregates":    aggregates(clips, job),
		"pagination": fiber.Map{
			"page":        page,
			"per_page":    perPage,
			"total":       len(clips),
			"total_pages": (len(clips) + perPage - 1) / perPage,
		},
	})
}

func (h *Handler) History(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", defaultPerPage)
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}

	jobs, total, err := h.repo.ListJobs(c.Context(), perPage, (page-1)*perPage)
	if err != nil {
		h.logger.Error("failed to list jobs", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "could not retrieve jobs")
	}

	views := make([]fiber.Map, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, h.jobView(c.Context(), job))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"jobs":    views,
		"pagination": fiber.Map{
			"page":        page,
			"per_page":    perPage,
			"total":       total,
			"total_pages": (total + perPage - 1) / perPage,
		},
	})
}

func (h *Handler) ClipDetail(c *fiber.Ctx) error {
	clipID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid clip id")
	}

	clip, err := h.repo.FindClipByID(c.Context(), clipID)
	if err != nil {
		return respondError(c, fiber.StatusNotFound, "clip not found")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"clip":    clipView(clip),
	})
}

func (h *Handler) DownloadClip(c *fiber.Ctx) error {
	clipID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid clip id")
	}

	clip, err := h.repo.FindClipByID(c.Context(), clipID)
	if err != nil {
		return respondError(c, fiber.StatusNotFound, "clip not found")
	}

	fileName := filepath.Base(clip.MediaKey)

	if h.storage != nil && clip.MediaURL != "" {
		rc, err := h.storage.OpenClip(c.Context(), clip.MediaKey)
		if err != nil {
			h.logger.Error("failed to open stored clip",
				zap.String("clip_id", clipID.String()),
				zap.String("media_key", clip.MediaKey),
				zap.Error(err),
			)
			return respondError(c, fiber.StatusInternalServerError, "could not open clip")
		}
		c.Set(fiber.HeaderContentType, "video/mp4")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
		return c.SendStream(rc)
	}

	localPath := filepath.Join(h.clipsDir, filepath.FromSlash(clip.MediaKey))
	if _, err := os.Stat(localPath); err != nil {
		return respondError(c, fiber.StatusNotFound, "clip file not found")
	}
	return c.Download(localPath, fileName)
}

func (h *Handler) findJob(c *fiber.Ctx) (*entity.ProcessingJob, error) {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, respondError(c, fiber.StatusBadRequest, "invalid job id")
	}
	job, err := h.repo.FindJobByID(c.Context(), jobID)
	if err != nil {
		return nil, respondError(c, fiber.StatusNotFound, "job not found")
	}
	return job, nil
}

// jobView is the status-poll shape: flat keys, error_message null
// until a job fails, processing_stats and video_info always objects.
func (h *Handler) jobView(ctx context.Context, job *entity.ProcessingJob) fiber.Map {
	var errMsg interface{}
	if job.ErrorMessage != "" {
		errMsg = job.ErrorMessage
	}

	totalClips := 0
	stats := fiber.Map{}
	if job.Stats != nil {
		totalClips = job.Stats.TotalClips
		stats = fiber.Map{
			"total_clips":        job.Stats.TotalClips,
			"failed_clips":       job.Stats.FailedClips,
			"average_score":      displayScore(job.Stats.AverageScore),
			"top_grade":          job.Stats.TopGrade,
			"grade_distribution": job.Stats.GradeDistribution,
			"processing_seconds": job.Stats.ProcessingSeconds,
		}
	} else if job.Status == entity.JobStatusCompleted {
		if count, err := h.repo.CountClipsByJob(ctx, job.ID); err == nil {
			totalClips = count
		}
	}

	video := fiber.Map{}
	if job.VideoInfo != nil {
		video = fiber.Map{
			"video_id":            job.VideoInfo.VideoID,
			"title":               job.VideoInfo.Title,
			"duration_seconds":    job.VideoInfo.DurationSeconds,
			"transcript_segments": job.VideoInfo.TranscriptSegments,
		}
	}

	view := fiber.Map{
		"processing_id":    job.ID,
		"youtube_url":      job.SourceURL,
		"clip_duration":    job.TargetClipSeconds,
		"status":           job.Status,
		"error_message":    errMsg,
		"total_clips":      totalClips,
		"processing_stats": stats,
		"video_info":       video,
		"created_at":       job.CreatedAt,
		"updated_at":       job.UpdatedAt,
	}
	if job.CompletedAt != nil {
		view["completed_at"] = job.CompletedAt
	}
	if job.Status == entity.JobStatusFailed {
		view["failed_stage"] = job.FailedStage
	}
	return view
}

func clipView(clip *entity.ViralClip) fiber.Map {
	return fiber.Map{
		"clip_id":            clip.ID,
		"job_id":             clip.JobID,
		"start":              clip.StartSeconds,
		"end":                clip.EndSeconds,
		"duration_seconds":   clip.DurationSeconds,
		"score":              displayScore(clip.ViralityScore),
		"grade":              clip.Grade,
		"justification":      clip.Justification,
		"emotional_keywords": clip.EmotionalKeywords,
		"urgency_indicators": clip.UrgencyIndicators,
		"resolution":         clip.Resolution,
		"file_size_bytes":    clip.FileSizeBytes,
		"media_url":          clip.MediaURL,
		"download_path":      fmt.Sprintf("/clips/%s/download", clip.ID),
		"created_at":         clip.CreatedAt,
	}
}

func aggregates(clips []*entity.ViralClip, job *entity.ProcessingJob) fiber.Map {
	if len(clips) == 0 {
		return fiber.Map{
			"total_clips":        0,
			"average_score":      0,
			"success_rate":       0.0,
			"grade_distribution": map[string]int{},
			"processing_seconds": processingSeconds(job),
		}
	}

	sum := 0.0
	topTier := 0
	dist := make(map[string]int, len(clips))
	for _, c := range clips {
		sum += c.ViralityScore
		if grading.IsTopTier(c.ViralityScore) {
			topTier++
		}
		dist[c.Grade]++
	}

	return fiber.Map{
		"total_clips":        len(clips),
		"average_score":      displayScore(sum / float64(len(clips))),
		"success_rate":       float64(topTier) / float64(len(clips)),
		"grade_distribution": dist,
		"processing_seconds": processingSeconds(job),
	}
}

func processingSeconds(job *entity.ProcessingJob) float64 {
	if job.Stats != nil {
		return job.Stats.ProcessingSeconds
	}
	return 0
}

// displayScore converts the canonical 0..1 score into the 0..100
// integer the API exposes.
func displayScore(score float64) int {
	return int(math.Round(grading.Clamp(score) * 100))
}

func respondError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", jsonName(fe.Field()))
	case "url":
		return fmt.Sprintf("'%s' must be a valid URL", jsonName(fe.Field()))
	case "min", "max":
		return fmt.Sprintf("'%s' must be between 5 and 60", jsonName(fe.Field()))
	}
	return fmt.Sprintf("'%s' is invalid", jsonName(fe.Field()))
}

func jsonName(field string) string {
	switch field {
	case "YouTubeURL":
		return "youtube_url"
	case "ClipDuration":
		return "clip_duration"
	}
	return field
}
