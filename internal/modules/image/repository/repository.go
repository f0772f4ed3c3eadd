package repository

import (
	"context"

	"github.com/reshetovitsme/rss-magazine/internal/modules/image/domain"
)

// Repository persists normalized images under their file name
type Repository interface {
	Save(ctx context.Context, image domain.Image) error
}
