package entity

import (
	"time"

	"github.com/google/uuid"
)

// ViralClip is one rendered sub-segment of the source video.
// ViralityScore is canonically 0.0..1.0; the 0..100 display integer
// exists only at the HTTP boundary.
type ViralClip struct {
	ID                uuid.UUID
	JobID             uuid.UUID
	StartSeconds      float64
	EndSeconds        float64
	ViralityScore     float64
	Grade             string
	Justification     string
	EmotionalKeywords []string
	UrgencyIndicators []string
	MediaURL          string
	MediaKey          string
	FileSizeBytes     int64
	DurationSeconds   float64
	Resolution        string
	CreatedAt         time.Time
}
