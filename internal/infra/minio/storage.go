package minio

import (
	"context"
	"fmt"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/shanyukollipara/clips-ai/internal/domain/port"
)

var _ port.BlobStore = (*Storage)(nil)

// Storage keeps rendered clips in a single object bucket. The service
// treats it as optional; without it clips stay on local disk.
type Storage struct {
	client     *miniogo.Client
	clipBucket string
	endpoint   string
	useSSL     bool
}

type StorageConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	ClipBucket string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:     client,
		clipBucket: cfg.ClipBucket,
		endpoint:   cfg.Endpoint,
		useSSL:     cfg.UseSSL,
	}, nil
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.clipBucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.clipBucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.clipBucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.clipBucket, err)
		}
	}
	return nil
}

func (s *Storage) UploadClip(ctx context.Context, objectKey string, localPath string) (string, error) {
	_, err := s.client.FPutObject(ctx, s.clipBucket, objectKey, localPath, miniogo.PutObjectOptions{
		ContentType: "video/mp4",
	})
	if err != nil {
		return "", fmt.Errorf("upload clip: %w", err)
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.clipBucket, objectKey), nil
}

func (s *Storage) OpenClip(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.clipBucket, objectKey, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open clip: %w", err)
	}
	return obj, nil
}

func (s *Storage) DeleteClip(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.clipBucket, objectKey, miniogo.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete clip: %w", err)
	}
	return nil
}
