package entity

import "github.com/google/uuid"

// ClipRequestMessage is the inbound message on the clip.requests queue.
type ClipRequestMessage struct {
	JobID             uuid.UUID `json:"job_id"`
	SourceURL         string    `json:"source_url"`
	TargetClipSeconds int       `json:"target_clip_seconds"`
}

// JobStatusMessage is published to the clip.status queue on every
// job transition.
type JobStatusMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	Status       JobStatus `json:"status"`
	TotalClips   int       `json:"total_clips,omitempty"`
	FailedStage  Stage     `json:"failed_stage,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}
