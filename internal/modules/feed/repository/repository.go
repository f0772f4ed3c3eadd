package repository

import (
	"github.com/reshetovitsme/rss-magazine/internal/modules/feed/domain"
)

// Repository defines the interface for settings persistence
type Repository interface {
	Load() (*domain.Settings, error)
	Save(settings *domain.Settings) error
}
