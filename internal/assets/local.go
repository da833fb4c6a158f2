package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// LocalBackend stores images as files in a directory, served back through
// the API's asset route.
type LocalBackend struct {
	dir     string
	baseURL string
}

func NewLocalBackend(dir, baseURL string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create asset dir: %w", err)
	}
	return &LocalBackend{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *LocalBackend) Put(_ context.Context, key string, data []byte, _ string) error {
	tmp, err := os.CreateTemp(b.dir, ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(b.dir, key)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (b *LocalBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(b.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrAssetNotFound
	}
	return err
}

func (b *LocalBackend) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	path := filepath.Join(b.dir, key)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", ErrAssetNotFound
	}
	if err != nil {
		return nil, "", err
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		f.Close()
		return nil, "", err
	}
	return f, mtype.String(), nil
}

func (b *LocalBackend) URL(key string) string {
	return b.baseURL + "/" + key
}
