// Package gcs implements the image blob store on Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/areebaatariq/DiabeVision/internal/domain/repository"
)

// defaultContentType is served when the stored object carries no content
// type of its own.
const defaultContentType = "image/jpeg"

// NewClient creates a Google Cloud Storage client. If credsPath is empty,
// Application Default Credentials are used.
func NewClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	if credsPath == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

// BlobStore stores uploaded retinal images as objects under an opaque
// uuid key. Writes commit on Close, so a caller either observes a complete
// object or none at all.
type BlobStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewBlobStore(client *storage.Client, bucket string) *BlobStore {
	return &BlobStore{client: client, bucket: bucket, prefix: "retina/"}
}

func (s *BlobStore) Put(ctx context.Context, r io.Reader, contentType string) (string, error) {
	objectID := s.prefix + uuid.NewString()
	wc := s.client.Bucket(s.bucket).Object(objectID).NewWriter(ctx)
	wc.ContentType = contentType
	wc.ChunkSize = 0 // single-request upload; payloads are capped small
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", err
	}
	return objectID, nil
}

// Get returns a streaming reader over the object plus its content type.
// The caller must close the reader; read errors mid-stream surface there.
func (s *BlobStore) Get(ctx context.Context, objectID string) (io.ReadCloser, string, error) {
	rd, err := s.client.Bucket(s.bucket).Object(objectID).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", repository.ErrNotFound
		}
		return nil, "", err
	}
	contentType := rd.Attrs.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	return rd, contentType, nil
}

var _ repository.BlobStore = (*BlobStore)(nil)
