package assets

import (
	"context"
	"errors"
	"io"
)

// ErrAssetNotFound is returned by a Backend when the key does not exist.
var ErrAssetNotFound = errors.New("asset not found")

// Backend is a blob store holding report images under opaque keys.
type Backend interface {
	// Put must be atomic: after an error no object is readable under key.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	// URL is the public locator stored in a report's imageRef.
	URL(key string) string
}
