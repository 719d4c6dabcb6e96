package port

import (
	"context"

	"github.com/shanyukollipara/clips-ai/internal/domain/entity"
)

// TranscriptSource fetches a timestamped transcript for a video URL,
// normalized into the entity.Transcript shape.
type TranscriptSource interface {
	FetchTranscript(ctx context.Context, sourceURL string) (entity.Transcript, error)
}
