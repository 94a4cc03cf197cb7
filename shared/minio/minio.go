package minio

import (
	"context"
	"fmt"

	"github.com/bharathbs2003/cinehack/shared/config"

	miniosdk "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client bundles the in-cluster MinIO client, the client used for presigned
// URL generation, and the bucket every artifact lives in.
type Client struct {
	*miniosdk.Client
	publicClient *miniosdk.Client
	bucket       string
}

// Option customizes client initialization.
type Option func(*clientOptions)

type clientOptions struct {
	requireExistingBucket bool
}

// WithExistingBucketOnly makes New fail when the bucket is missing instead
// of creating it. Worker deployments use this so a misconfigured bucket name
// surfaces at startup rather than as a fresh empty bucket.
func WithExistingBucketOnly() Option {
	return func(o *clientOptions) {
		o.requireExistingBucket = true
	}
}

// New dials MinIO and ensures the configured bucket is usable. When a public
// endpoint differs from the internal one, a second client is kept for
// presigning so the URLs resolve from outside the cluster network.
func New(cfg config.MinIOConfig, opts ...Option) (*Client, error) {
	var settings clientOptions
	for _, opt := range opts {
		opt(&settings)
	}

	client, err := dial(cfg.Endpoint, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	publicClient := client
	if cfg.PublicEndpoint != "" && cfg.PublicEndpoint != cfg.Endpoint {
		if publicClient, err = dial(cfg.PublicEndpoint, cfg); err != nil {
			return nil, fmt.Errorf("failed to create public MinIO client: %w", err)
		}
	}

	if err := ensureBucket(client, cfg.Bucket, settings.requireExistingBucket); err != nil {
		return nil, err
	}

	return &Client{
		Client:       client,
		publicClient: publicClient,
		bucket:       cfg.Bucket,
	}, nil
}

func dial(endpoint string, cfg config.MinIOConfig) (*miniosdk.Client, error) {
	return miniosdk.New(endpoint, &miniosdk.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
}

func ensureBucket(client *miniosdk.Client, bucket string, requireExisting bool) error {
	ctx := context.Background()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if requireExisting {
		return fmt.Errorf("bucket %s does not exist", bucket)
	}
	if err := client.MakeBucket(ctx, bucket, miniosdk.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// PublicClient returns the client used for presigned URL generation.
func (c *Client) PublicClient() *miniosdk.Client {
	return c.publicClient
}
