package gcs

import (
	"context"
	"time"
)

// StorageService provides the cloud storage operations the export job needs.
// This interface enables mocking in tests.
type StorageService interface {
	// UploadBytes writes data to objectName and returns its gs:// URI.
	UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) (string, error)

	// SignedURL returns a time-limited download URL for objectName.
	SignedURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}
