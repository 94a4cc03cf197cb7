package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/bharathbs2003/cinehack/shared/minio"

	miniosdk "github.com/minio/minio-go/v7"
)

// Service is the MinIO-backed ObjectStorage used by the API and the worker.
// All keys are relative to the single configured bucket.
type Service struct {
	client        *minio.Client
	bucket        string
	presignClient *miniosdk.Client
	hostOverride  string
}

var _ ObjectStorage = (*Service)(nil)

// Option customizes the storage service behaviour.
type Option func(*Service)

// WithPresignClient sets a custom client for generating presigned URLs.
func WithPresignClient(client *miniosdk.Client) Option {
	return func(s *Service) {
		s.presignClient = client
	}
}

// WithHostOverride replaces the host in generated presigned URLs.
func WithHostOverride(host string) Option {
	return func(s *Service) {
		s.hostOverride = host
	}
}

// New creates a storage service over an initialized MinIO client. Presigned
// URLs go through the client's public endpoint unless overridden.
func New(client *minio.Client, opts ...Option) *Service {
	s := &Service{
		client:        client,
		bucket:        client.Bucket(),
		presignClient: client.PublicClient(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutObject uploads an object under key.
func (s *Service) PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	opts := miniosdk.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, reader, size, opts); err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

// GetObject opens a streaming reader for the object at key. The caller owns
// the returned reader and must close it.
func (s *Service) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, miniosdk.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return obj, nil
}

// DeleteObject removes the object at key.
func (s *Service) DeleteObject(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, miniosdk.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// DeletePrefix deletes every object under the given prefix. Used to clean up
// a job's working artifacts after cancellation or deletion.
func (s *Service) DeletePrefix(ctx context.Context, prefix string) error {
	listing := s.client.ListObjects(ctx, s.bucket, miniosdk.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for obj := range listing {
		if obj.Err != nil {
			return fmt.Errorf("failed to list objects under %s: %w", prefix, obj.Err)
		}
		if err := s.DeleteObject(ctx, obj.Key); err != nil {
			return err
		}
	}
	return nil
}

// PresignedGetURL generates a time-limited download URL for external callers.
func (s *Service) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	presigned, err := s.presignClient.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL for %s: %w", key, err)
	}
	if s.hostOverride == "" {
		return presigned.String(), nil
	}

	rewritten, err := url.Parse(presigned.String())
	if err != nil {
		return "", fmt.Errorf("failed to parse presigned URL: %w", err)
	}
	rewritten.Host = s.hostOverride
	return rewritten.String(), nil
}

// ObjectExists checks whether an object exists without downloading it.
func (s *Service) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, miniosdk.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if miniosdk.ToErrorResponse(err).StatusCode == 404 {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat object %s: %w", key, err)
}
