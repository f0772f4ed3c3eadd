package repository

import (
	"context"
	"os"
	"path/filepath"

	"github.com/reshetovitsme/rss-magazine/internal/modules/image/domain"
	"github.com/samber/oops"
)

// FileStorage writes images into the magazine content directory.
// Image ids are random, so concurrent saves never share a path.
type FileStorage struct {
	dir string
}

// NewFileStorage creates a file-based image repository rooted at dir
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, oops.With("content_dir", dir, "context", "failed to create content directory").Wrap(err)
	}
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) Save(ctx context.Context, image domain.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if domain.IsSentinel(image.ID) {
		return oops.With("image_id", image.ID).Errorf("refusing to store the sentinel image")
	}

	path := filepath.Join(s.dir, image.FileName())
	if err := os.WriteFile(path, image.Data, 0644); err != nil {
		return oops.With("image_id", image.ID, "path", path, "context", "failed to write image").Wrap(err)
	}
	return nil
}
