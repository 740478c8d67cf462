// Package imagestore keeps item and profile images in MinIO.
package imagestore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/terminal-bench/lendvault/internal/config"
)

// MaxImagesPerUpload bounds a single upload batch; listings also
// require between one and this many images.
const MaxImagesPerUpload = 5

// Service stores images in an object bucket.
type Service struct {
	client *minio.Client
	bucket string
}

// NewService connects to MinIO and ensures the bucket exists.
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Service{client: client, bucket: cfg.MinioBucket}, nil
}

// Upload stores one image under the user's prefix and returns its key.
// Only image content types are accepted.
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, reader io.Reader, size int64, contentType string) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("only image files are allowed, got %s", contentType)
	}

	key := fmt.Sprintf("users/%s/uploads/%s/%s",
		userID, time.Now().Format("2006/01/02"), uuid.New())
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// Delete removes a stored image by key.
func (s *Service) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// Open streams a stored image.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return obj, nil
}
