package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBackend stores images in a Google Cloud Storage bucket.
type GCSBackend struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

// NewGCSBackend prefers Application Default Credentials; credJSON is for
// running outside GCP.
func NewGCSBackend(ctx context.Context, bucket, credJSON, baseURL string) (*GCSBackend, error) {
	if bucket == "" {
		return nil, errors.New("GCS_BUCKET is required for the gcs asset driver")
	}
	var opts []option.ClientOption
	if strings.TrimSpace(credJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("gcs bucket %q not found or not accessible: %w", bucket, err)
	}
	if baseURL == "" || strings.HasPrefix(baseURL, "/") {
		baseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSBackend{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *GCSBackend) Put(ctx context.Context, key string, data []byte, contentType string) error {
	// Cancelling the context aborts the upload so no partial object is kept.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := b.client.Bucket(b.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("failed to upload to gcs: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gcs upload: %w", err)
	}
	return nil
}

func (b *GCSBackend) Delete(ctx context.Context, key string) error {
	err := b.client.Bucket(b.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrAssetNotFound
	}
	return err
}

func (b *GCSBackend) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	r, err := b.client.Bucket(b.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, "", ErrAssetNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return r, r.Attrs.ContentType, nil
}

func (b *GCSBackend) URL(key string) string {
	return b.baseURL + "/" + key
}

func (b *GCSBackend) Close() error {
	return b.client.Close()
}
