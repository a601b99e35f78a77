// Package storage defines the blob store consumed by the application
// lifecycle for uploaded attachments.
package storage

import (
	"context"
	"io"
	"time"
)

// BlobStore is the narrow interface the core uses for attachment bytes.
type BlobStore interface {
	// Put stores the content and returns the generated blob key.
	Put(ctx context.Context, content io.Reader, originalName string) (string, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL for the blob.
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}
