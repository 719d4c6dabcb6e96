package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/shanyukollipara/clips-ai/internal/domain/entity"
)

// Repository holds job and clip state. Clips are returned ordered by
// virality score descending, ties by creation order ascending.
type Repository interface {
	CreateJob(ctx context.Context, job *entity.ProcessingJob) error
	UpdateJob(ctx context.Context, job *entity.ProcessingJob) error
	FindJobByID(ctx context.Context, id uuid.UUID) (*entity.ProcessingJob, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*entity.ProcessingJob, int, error)

	CreateClips(ctx context.Context, clips []*entity.ViralClip) error
	FindClipByID(ctx context.Context, id uuid.UUID) (*entity.ViralClip, error)
	ListClipsByJob(ctx context.Context, jobID uuid.UUID) ([]*entity.ViralClip, error)
	CountClipsByJob(ctx context.Context, jobID uuid.UUID) (int, error)
}
