// Package files stores submitted images on the local filesystem.
package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

// Ensure ImageStore implements driven.ImageStore
var _ driven.ImageStore = (*ImageStore)(nil)

// DefaultDir is used when no image directory is configured
const DefaultDir = "logs_images"

// ImageStore writes images into one flat directory
type ImageStore struct {
	dir string
}

// NewImageStore creates the directory if needed
func NewImageStore(dir string) (*ImageStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &ImageStore{dir: dir}, nil
}

// Dir returns the image directory
func (s *ImageStore) Dir() string {
	return s.dir
}

// Save writes data under name. Names must be plain file names.
func (s *ImageStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: image name %q", domain.ErrInvalidInput, name)
	}

	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close image: %w", err)
	}
	return path, nil
}

// Delete removes an image previously returned by Save
func (s *ImageStore) Delete(_ context.Context, path string) error {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel != filepath.Base(rel) || rel == "." || rel == ".." {
		return fmt.Errorf("%w: %s is outside the image directory", domain.ErrInvalidInput, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}
