package port

import "context"

type FailureNotifier interface {
	NotifyFailure(ctx context.Context, jobID string, sourceURL string, stage string, errorMsg string) error
}
