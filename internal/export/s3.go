package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultPresignTTL = 15 * time.Minute

// S3Config configures an S3Storage.
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
	URLExpiry       time.Duration
}

// S3Storage uploads artifacts to an S3 compatible bucket and hands out
// presigned download URLs.
type S3Storage struct {
	client *minio.Client
	bucket string
	prefix string
	expiry time.Duration
}

// NewS3Storage creates the minio client. No request is made until Store.
func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket must be set")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = defaultPresignTTL
	}
	return &S3Storage{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, expiry: expiry}, nil
}

// Key returns the object key for an artifact name stored under id.
func (s *S3Storage) Key(id, name string) string {
	return s.prefix + id + "/" + name
}

// Store uploads the artifact under id and presigns a GET for it.
func (s *S3Storage) Store(ctx context.Context, id string, artifact Artifact) (StoredArtifact, error) {
	key := s.Key(id, artifact.Name)

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(artifact.Data), int64(len(artifact.Data)), minio.PutObjectOptions{
		ContentType: artifact.ContentType,
	})
	if err != nil {
		return StoredArtifact{}, fmt.Errorf("put object %q failed: %w", key, err)
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, nil)
	if err != nil {
		return StoredArtifact{}, fmt.Errorf("presign get object %q failed: %w", key, err)
	}
	return StoredArtifact{Key: key, Name: artifact.Name, URL: u.String()}, nil
}
