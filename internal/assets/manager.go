// Package assets stores, serves and removes the images attached to reports.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const DefaultMaxBytes int64 = 5 * 1024 * 1024

var imageFormats = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.GIF,
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

type Options struct {
	MaxBytes int64
	// MaxDimension downsizes images whose longer edge exceeds it. Zero keeps
	// the original bytes.
	MaxDimension int
}

type Manager struct {
	backend Backend
	opts    Options
}

func NewManager(backend Backend, opts Options) *Manager {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &Manager{backend: backend, opts: opts}
}

// Upload validates data as an image and stores it, returning the reference to
// persist in imageRef. It fails with InvalidAsset before any bytes are written
// and with UploadFailed when the backend rejects the write.
func (m *Manager) Upload(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperr.InvalidAsset("image is empty")
	}
	if int64(len(data)) > m.opts.MaxBytes {
		return "", apperr.InvalidAsset(fmt.Sprintf("image exceeds %d byte limit", m.opts.MaxBytes))
	}

	mtype := mimetype.Detect(data)
	contentType := mtype.String()
	format, ok := imageFormats[contentType]
	if !ok {
		return "", apperr.InvalidAsset(fmt.Sprintf("unsupported image type %s", contentType))
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", apperr.InvalidAsset("image could not be decoded")
	}

	payload := data
	if m.needsResize(img) {
		resized := imaging.Fit(img, m.opts.MaxDimension, m.opts.MaxDimension, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, format); err != nil {
			return "", apperr.UploadFailed(err)
		}
		payload = buf.Bytes()
	}

	key := uuid.New().String() + extensions[contentType]
	if err := m.backend.Put(ctx, key, payload, contentType); err != nil {
		return "", apperr.UploadFailed(err)
	}
	return m.backend.URL(key), nil
}

func (m *Manager) needsResize(img image.Image) bool {
	if m.opts.MaxDimension <= 0 {
		return false
	}
	b := img.Bounds()
	return b.Dx() > m.opts.MaxDimension || b.Dy() > m.opts.MaxDimension
}

// Delete removes the asset behind ref. A reference that no longer resolves
// is logged and treated as already deleted.
func (m *Manager) Delete(ctx context.Context, ref string) error {
	key, ok := m.KeyFromRef(ref)
	if !ok {
		slog.Info("asset ref not resolvable, nothing to delete", "ref", ref)
		return nil
	}
	err := m.backend.Delete(ctx, key)
	if errors.Is(err, ErrAssetNotFound) {
		slog.Info("asset already gone", "key", key)
		return nil
	}
	return err
}

// Open streams the asset stored under key.
func (m *Manager) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if !validKey(key) {
		return nil, "", apperr.NotFound("asset not found")
	}
	rc, contentType, err := m.backend.Open(ctx, key)
	if errors.Is(err, ErrAssetNotFound) {
		return nil, "", apperr.NotFound("asset not found")
	}
	return rc, contentType, err
}

// KeyFromRef extracts the backend key from a stored imageRef.
func (m *Manager) KeyFromRef(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	key := ref[strings.LastIndex(ref, "/")+1:]
	if !validKey(key) {
		return "", false
	}
	return key, true
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, ".") || strings.ContainsAny(key, `/\`) {
		return false
	}
	return true
}
