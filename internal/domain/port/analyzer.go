package port

import (
	"context"

	"github.com/shanyukollipara/clips-ai/internal/domain/entity"
)

// MomentAnalyzer turns a transcript into a ranked list of candidate
// viral moments sized near targetSeconds. The transcript must be
// non-empty; an empty one is an entity.ErrInvalidArgument.
type MomentAnalyzer interface {
	ExtractMoments(ctx context.Context, tr entity.Transcript, targetSeconds int) ([]entity.Moment, error)
}
