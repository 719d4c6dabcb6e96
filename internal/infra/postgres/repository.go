package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shanyukollipara/clips-ai/internal/domain/entity"
	"github.com/shanyukollipara/clips-ai/internal/domain/port"
)

var _ port.Repository = (*Repository)(nil)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateJob(ctx context.Context, job *entity.ProcessingJob) error {
	stats, info, err := marshalJobDocs(job)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO processing_jobs (
			id, source_url, target_clip_seconds, status, failed_stage,
			error_message, stats, video_info, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err = r.pool.Exec(ctx, query,
		job.ID, job.SourceURL, job.TargetClipSeconds, string(job.Status),
		string(job.FailedStage), job.ErrorMessage, stats, info,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *Repository) UpdateJob(ctx context.Context, job *entity.ProcessingJob) error {
	stats, info, err := marshalJobDocs(job)
	if err != nil {
		return err
	}

	query := `
		UPDATE processing_jobs SET
			status=$2, failed_stage=$3, error_message=$4, stats=$5,
			video_info=$6, updated_at=$7, completed_at=$8
		WHERE id=$1`

	_, err = r.pool.Exec(ctx, query,
		job.ID, string(job.Status), string(job.FailedStage), job.ErrorMessage,
		stats, info, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *Repository) FindJobByID(ctx context.Context, id uuid.UUID) (*entity.ProcessingJob, error) {
	query := `
		SELECT id, source_url, target_clip_seconds, status, failed_stage,
			error_message, stats, video_info, created_at, updated_at, completed_at
		FROM processing_jobs WHERE id=$1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	return job, nil
}

func (r *Repository) ListJobs(ctx context.Context, limit, offset int) ([]*entity.ProcessingJob, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM processing_jobs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	query := `
		SELECT id, source_url, target_clip_seconds, status, failed_stage,
			error_message, stats, video_info, created_at, updated_at, completed_at
		FROM processing_jobs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*entity.ProcessingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list jobs: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, total, nil
}

func (r *Repository) CreateClips(ctx context.Context, clips []*entity.ViralClip) error {
	if len(clips) == 0 {
		return nil
	}

	query := `
		INSERT INTO viral_clips (
			id, job_id, start_seconds, end_seconds, virality_score, grade,
			justification, emotional_keywords, urgency_indicators,
			media_url, media_key, file_size_bytes, duration_seconds,
			resolution, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	batch := &pgx.Batch{}
	for _, c := range clips {
		keywords, err := json.Marshal(c.EmotionalKeywords)
		if err != nil {
			return fmt.Errorf("marshal emotional keywords: %w", err)
		}
		indicators, err := json.Marshal(c.UrgencyIndicators)
		if err != nil {
			return fmt.Errorf("marshal urgency indicators: %w", err)
		}
		batch.Queue(query,
			c.ID, c.JobID, c.StartSeconds, c.EndSeconds, c.ViralityScore, c.Grade,
			c.Justification, keywords, indicators,
			c.MediaURL, c.MediaKey, c.FileSizeBytes, c.DurationSeconds,
			c.Resolution, c.CreatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range clips {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert clip: %w", err)
		}
	}
	return nil
}

func (r *Repository) FindClipByID(ctx context.Context, id uuid.UUID) (*entity.ViralClip, error) {
	query := clipSelect + ` WHERE id=$1`

	clip, err := scanClip(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("find clip by id: %w", err)
	}
	return clip, nil
}

func (r *Repository) ListClipsByJob(ctx context.Context, jobID uuid.UUID) ([]*entity.ViralClip, error) {
	query := clipSelect + `
		WHERE job_id=$1
		ORDER BY virality_score DESC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list clips by job: %w", err)
	}
	defer rows.Close()

	var clips []*entity.ViralClip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("list clips by job: %w", err)
		}
		clips = append(clips, clip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list clips by job: %w", err)
	}
	return clips, nil
}

func (r *Repository) CountClipsByJob(ctx context.Context, jobID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM viral_clips WHERE job_id=$1`, jobID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count clips by job: %w", err)
	}
	return count, nil
}

const clipSelect = `
	SELECT id, job_id, start_seconds, end_seconds, virality_score, grade,
		justification, emotional_keywords, urgency_indicators,
		media_url, media_key, file_size_bytes, duration_seconds,
		resolution, created_at
	FROM viral_clips`

func marshalJobDocs(job *entity.ProcessingJob) ([]byte, []byte, error) {
	var stats, info []byte
	var err error
	if job.Stats != nil {
		if stats, err = json.Marshal(job.Stats); err != nil {
			return nil, nil, fmt.Errorf("marshal job stats: %w", err)
		}
	}
	if job.VideoInfo != nil {
		if info, err = json.Marshal(job.VideoInfo); err != nil {
			return nil, nil, fmt.Errorf("marshal video info: %w", err)
		}
	}
	return stats, info, nil
}

func scanJob(row pgx.Row) (*entity.ProcessingJob, error) {
	job := &entity.ProcessingJob{}
	var status, failedStage string
	var stats, info []byte

	err := row.Scan(
		&job.ID, &job.SourceURL, &job.TargetClipSeconds, &status, &failedStage,
		&job.ErrorMessage, &stats, &info,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = entity.JobStatus(status)
	job.FailedStage = entity.Stage(failedStage)

	if len(stats) > 0 {
		job.Stats = &entity.ProcessingStats{}
		if err := json.Unmarshal(stats, job.Stats); err != nil {
			return nil, fmt.Errorf("unmarshal job stats: %w", err)
		}
	}
	if len(info) > 0 {
		job.VideoInfo = &entity.VideoInfo{}
		if err := json.Unmarshal(info, job.VideoInfo); err != nil {
			return nil, fmt.Errorf("unmarshal video info: %w", err)
		}
	}
	return job, nil
}

func scanClip(row pgx.Row) (*entity.ViralClip, error) {
	clip := &entity.ViralClip{}
	var keywords, indicators []byte

	err := row.Scan(
		&clip.ID, &clip.JobID, &clip.StartSeconds, &clip.EndSeconds,
		&clip.ViralityScore, &clip.Grade, &clip.Justification,
		&keywords, &indicators,
		&clip.MediaURL, &clip.MediaKey, &clip.FileSizeBytes,
		&clip.DurationSeconds, &clip.Resolution, &clip.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &clip.EmotionalKeywords); err != nil {
			return nil, fmt.Errorf("unmarshal emotional keywords: %w", err)
		}
	}
	if len(indicators) > 0 {
		if err := json.Unmarshal(indicators, &clip.UrgencyIndicators); err != nil {
			return nil, fmt.Errorf("unmarshal urgency indicators: %w", err)
		}
	}
	return clip, nil
}
