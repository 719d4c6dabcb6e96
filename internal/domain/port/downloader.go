package port

import "context"

// MediaFetcher downloads the full source media to a local path under
// destDir. Cleanup releases the fetched artifact; the orchestrator
// calls it exactly once per job.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, sourceURL string, destDir string) (string, error)
	Cleanup(path string) error
}
