package blobstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores uploads in a Cloud Storage bucket and returns gs:// locators.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a Cloud Storage client for bucket.
func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Save writes the upload as an object under dir and returns its gs:// locator.
func (g *GCS) Save(ctx context.Context, upload Upload, dir string) (string, error) {
	if len(upload.Data) == 0 {
		return "", ErrEmptyUpload
	}
	name, err := objectName(dir, upload.FileName)
	if err != nil {
		return "", err
	}
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = upload.ContentType
	if _, err := w.Write(upload.Data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", name, err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, name), nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}
