package port

import (
	"context"
	"io"
)

// BlobStore persists rendered clips. It is an optional dependency:
// when absent the service runs in local-only mode and clips stay on
// disk.
type BlobStore interface {
	// UploadClip stores the local file under objectKey and returns a
	// URL for the stored object.
	UploadClip(ctx context.Context, objectKey string, localPath string) (string, error)
	OpenClip(ctx context.Context, objectKey string) (io.ReadCloser, error)
	DeleteClip(ctx context.Context, objectKey string) error
}
