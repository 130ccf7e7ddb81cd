package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kubev2v/fold-planner/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Opts func(c *s3Config)

type s3Config struct {
	endpoint        string
	region          string
	bucket          string
	accessKey       string
	secretAccessKey string
	useSSL          bool
	expiry          time.Duration
}

func newS3Config(opts ...S3Opts) *s3Config {
	cfg := &s3Config{
		useSSL: true,
		expiry: DefaultURLExpiry,
	}

	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

type s3Adapter struct {
	cfg    *s3Config
	client *minio.Client
}

func NewS3Adapter(opts ...S3Opts) (Adapter, error) {
	cfg := newS3Config(opts...)
	if cfg.bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	// the region is set explicitly so presigning does not need a bucket location lookup
	client, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
		Region: cfg.region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return &s3Adapter{cfg: cfg, client: client}, nil
}

func (s *s3Adapter) ReadURL(ctx context.Context, name string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.cfg.bucket, name, s.cfg.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s/%s: %w", s.cfg.bucket, name, err)
	}
	return u.String(), nil
}

func (s *s3Adapter) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.cfg.bucket, name, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s/%s: %w", s.cfg.bucket, name, err)
}

func (s *s3Adapter) Provider() string {
	return config.StorageProviderAWS
}

func (s *s3Adapter) Location() Location {
	return Location{Provider: config.StorageProviderAWS, Bucket: s.cfg.bucket}
}

func WithEndpoint(endpoint string) S3Opts {
	return func(c *s3Config) {
		c.endpoint = endpoint
	}
}

func WithRegion(region string) S3Opts {
	return func(c *s3Config) {
		c.region = region
	}
}

func WithBucket(bucket string) S3Opts {
	return func(c *s3Config) {
		c.bucket = bucket
	}
}

func WithAccessKey(accessKey string) S3Opts {
	return func(c *s3Config) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) S3Opts {
	return func(c *s3Config) {
		c.secretAccessKey = secretKey
	}
}

func WithSSL(useSSL bool) S3Opts {
	return func(c *s3Config) {
		c.useSSL = useSSL
	}
}

func WithExpiry(expiry time.Duration) S3Opts {
	return func(c *s3Config) {
		c.expiry = expiry
	}
}
