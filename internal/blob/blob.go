// Package blob abstracts attachment content storage. The wiki core only
// sees opaque keys; content lives in an S3-compatible object store.
package blob

import (
	"context"
	"io"
)

// Store reads and writes attachment blobs by key.
type Store interface {
	// Put stores content under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error

	// Get opens the blob for reading. The caller must close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Remove deletes the blob. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
