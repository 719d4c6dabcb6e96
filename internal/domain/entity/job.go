package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ProcessingStats summarizes a completed pipeline run.
type ProcessingStats struct {
	TotalClips        int            `json:"total_clips"`
	FailedClips       int            `json:"failed_clips"`
	AverageScore      float64        `json:"average_score"`
	TopGrade          string         `json:"top_grade"`
	GradeDistribution map[string]int `json:"grade_distribution"`
	ProcessingSeconds float64        `json:"processing_seconds"`
}

// VideoInfo carries source-media metadata captured during the run.
type VideoInfo struct {
	VideoID            string  `json:"video_id"`
	Title              string  `json:"title"`
	DurationSeconds    float64 `json:"duration_seconds"`
	TranscriptSegments int     `json:"transcript_segments"`
}

// ProcessingJob is one clip-generation request. Status moves
// pending -> processing -> completed|failed and never leaves a
// terminal state.
type ProcessingJob struct {
	ID                uuid.UUID
	SourceURL         string
	TargetClipSeconds int
	Status            JobStatus
	FailedStage       Stage
	ErrorMessage      string
	Stats             *ProcessingStats
	VideoInfo         *VideoInfo
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
}

func NewProcessingJob(sourceURL string, targetClipSeconds int) *ProcessingJob {
	now := time.Now().UTC()
	return &ProcessingJob{
		ID:                uuid.New(),
		SourceURL:         sourceURL,
		TargetClipSeconds: targetClipSeconds,
		Status:            JobStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (j *ProcessingJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

func (j *ProcessingJob) MarkProcessing() error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("job %s: cannot start processing from status %q", j.ID, j.Status)
	}
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (j *ProcessingJob) MarkCompleted(stats ProcessingStats, info VideoInfo) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("job %s: cannot complete from status %q", j.ID, j.Status)
	}
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.Stats = &stats
	j.VideoInfo = &info
	j.FailedStage = ""
	j.ErrorMessage = ""
	j.UpdatedAt = now
	j.CompletedAt = &now
	return nil
}

func (j *ProcessingJob) MarkFailed(stage Stage, errMsg string) error {
	if j.IsTerminal() {
		return fmt.Errorf("job %s: cannot fail from terminal status %q", j.ID, j.Status)
	}
	now := time.Now().UTC()
	j.Status = JobStatusFailed
	j.FailedStage = stage
	j.ErrorMessage = errMsg
	j.Stats = nil
	j.VideoInfo = nil
	j.UpdatedAt = now
	j.CompletedAt = &now
	return nil
}
