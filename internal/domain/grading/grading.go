// Package grading derives letter grades from virality scores.
// Scores are on the canonical 0.0..1.0 scale.
package grading

// threshold table, applied top-down, first match wins.
var thresholds = []struct {
	min   float64
	grade string
}{
	{0.97, "A+"},
	{0.93, "A"},
	{0.90, "A-"},
	{0.87, "B+"},
	{0.83, "B"},
	{0.80, "B-"},
	{0.77, "C+"},
	{0.73, "C"},
	{0.70, "C-"},
	{0.65, "D+"},
	{0.60, "D"},
}

// ForScore maps a 0..1 virality score to its letter grade.
func ForScore(score float64) string {
	for _, t := range thresholds {
		if score >= t.min {
			return t.grade
		}
	}
	return "F"
}

// IsTopTier reports whether a score lands in the A bucket (A-, A, A+).
// The results endpoint uses this for the success-rate aggregate.
func IsTopTier(score float64) bool {
	return score >= 0.90
}

// Distribution counts clips per grade bucket.
func Distribution(scores []float64) map[string]int {
	dist := make(map[string]int, len(thresholds)+1)
	for _, s := range scores {
		dist[ForScore(s)]++
	}
	return dist
}

// Clamp bounds a score into [0, 1].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
