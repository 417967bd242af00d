package repository

import (
	"context"
	"io"
)

// BlobStore is a content store keyed by opaque object ids. Put must be atomic
// from the caller's perspective: afterwards either a complete readable object
// exists under the returned id, or none does. Get streams; callers must close
// the reader and may see a read error mid-stream on backend failure.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader, contentType string) (string, error)
	Get(ctx context.Context, objectID string) (io.ReadCloser, string, error)
}
