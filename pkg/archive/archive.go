// Package archive keeps a copy of every raw upload so a period can be
// re-ingested after its rows were deleted.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// Archiver stores raw upload bytes.
type Archiver interface {
	Store(ctx context.Context, key string, contentType string, data []byte) error
}

// ObjectKey is the location an upload is archived under.
func ObjectKey(source string, uploadID uuid.UUID, filename string) string {
	name := path.Base(filename)
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return path.Join("uploads", source, uploadID.String(), name)
}

// Noop discards everything. Used when no bucket is configured.
type Noop struct{}

func (Noop) Store(context.Context, string, string, []byte) error { return nil }

// GCS writes uploads to a Cloud Storage bucket using Application Default
// Credentials.
type GCS struct {
	client *storage.Client
	bucket string
}

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Store(ctx context.Context, key string, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy upload to gs://%s/%s: %w", g.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", g.bucket, key, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
