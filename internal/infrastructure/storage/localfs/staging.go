package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Staging keeps raw upload bytes on disk between admission and processing.
// Keys are flattened to their base name so callers cannot escape the root.
type Staging struct {
	basePath string
}

func New(basePath string) (*Staging, error) {
	if basePath == "" {
		basePath = "./data/staging"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Staging{basePath: basePath}, nil
}

// Stage writes the stream to disk and returns the number of bytes taken.
func (s *Staging) Stage(_ context.Context, key string, data io.Reader) (int64, error) {
	f, err := os.Create(s.path(key))
	if err != nil {
		return 0, fmt.Errorf("create staged file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, data)
	if err != nil {
		return n, fmt.Errorf("write staged file: %w", err)
	}
	return n, nil
}

func (s *Staging) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	return f, nil
}

// Remove deletes a staged file. A missing file is not an error, so cleanup
// can run more than once.
func (s *Staging) Remove(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}

func (s *Staging) path(key string) string {
	return filepath.Join(s.basePath, filepath.Base(key))
}
