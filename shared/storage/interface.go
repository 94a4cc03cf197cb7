package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStorage abstracts the object store operations the pipeline needs.
// Step processors depend on this interface rather than the MinIO-backed
// Service so tests can substitute in-memory implementations.
type ObjectStorage interface {
	PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	ObjectExists(ctx context.Context, key string) (bool, error)
}
