package gcsuploader

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/wallet-dashboard/internal/gcs"
)

// Re-export interface from shared package
type StorageService = gcs.StorageService

// GCSStorageService is the concrete implementation of StorageService bound to
// one bucket. It holds a shared storage client.
type GCSStorageService struct {
	client *storage.Client
	bucket string
}

// NewGCSStorageService creates a storage client for bucket using Application
// Default Credentials.
func NewGCSStorageService(ctx context.Context, bucket string) (*GCSStorageService, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCSStorageService: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStorageService: create storage client: %w", err)
	}
	return &GCSStorageService{client: client, bucket: bucket}, nil
}

// Close closes the storage client.
func (s *GCSStorageService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// UploadBytes delegates to UploadBytesWithClient.
func (s *GCSStorageService) UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	return UploadBytesWithClient(ctx, s.client, s.bucket, objectName, data, contentType)
}

// SignedURL delegates to SignedURLWithClient and falls back to the public
// object URL when the credentials cannot sign.
func (s *GCSStorageService) SignedURL(_ context.Context, objectName string, ttl time.Duration) (string, error) {
	url, err := SignedURLWithClient(s.client, s.bucket, objectName, ttl)
	if err != nil {
		return PublicURL(s.bucket, objectName), err
	}
	return url, nil
}

var _ StorageService = (*GCSStorageService)(nil)
