package entity

// Segment is one timestamped transcript line, offsets ascending.
type Segment struct {
	OffsetSeconds float64 `json:"offset_seconds"`
	Text          string  `json:"text"`
}

// Transcript is the normalized transcript shape every upstream
// provider is coerced into.
type Transcript struct {
	VideoID         string    `json:"video_id"`
	Title           string    `json:"title"`
	DurationSeconds float64   `json:"duration_seconds"`
	Segments        []Segment `json:"segments"`
}

// Moment is one candidate viral sub-range produced by the analyzer,
// already validated: 0 <= Start < End <= duration, score in [0,1].
type Moment struct {
	StartSeconds      float64  `json:"start_timestamp"`
	EndSeconds        float64  `json:"end_timestamp"`
	ViralityScore     float64  `json:"virality_score"`
	Grade             string   `json:"grade"`
	Justification     string   `json:"justification"`
	EmotionalKeywords []string `json:"emotional_keywords"`
	UrgencyIndicators []string `json:"urgency_indicators"`
}
