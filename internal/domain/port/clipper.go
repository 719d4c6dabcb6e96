package port

import "context"

// ClipArtifact describes a rendered clip file.
type ClipArtifact struct {
	Path            string
	FileSizeBytes   int64
	DurationSeconds float64
	// Resolution is "WIDTHxHEIGHT", or "unknown" when the probe failed.
	Resolution string
}

// ClipExtractor cuts a sub-range of a media file into a standalone
// output file.
type ClipExtractor interface {
	// IsAvailable is a fast probe of the encode tool; it never
	// returns an error, only false.
	IsAvailable(ctx context.Context) bool
	CreateClip(ctx context.Context, sourcePath string, startSeconds, endSeconds float64, outputPath string) (*ClipArtifact, error)
}
