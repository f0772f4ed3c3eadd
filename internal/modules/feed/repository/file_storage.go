package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/reshetovitsme/rss-magazine/internal/modules/feed/domain"
	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	"github.com/samber/oops"
)

// FileStorage implements Repository with a single JSON settings file
type FileStorage struct {
	path string
	mu   sync.RWMutex
}

// NewFileStorage creates a settings repository backed by path
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) Load() (*domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, oops.With("settings_path", s.path, "context", "failed to read settings").Wrap(err)
	}

	var settings domain.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, oops.With("settings_path", s.path, "context", "failed to unmarshal settings").Wrap(err)
	}
	if settings.FeedList == nil {
		return nil, oops.With("settings_path", s.path).Wrap(errors.ErrSettingsFormat)
	}

	return &settings, nil
}

// Save replaces the settings file through a temporary file in the same
// directory, so a crash mid-write leaves the previous cursors intact.
func (s *FileStorage) Save(settings *domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return oops.With("context", "failed to marshal settings").Wrap(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".setting-*.json")
	if err != nil {
		return oops.With("settings_path", s.path, "context", "failed to create temp file").Wrap(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return oops.With("settings_path", s.path, "context", "failed to write settings").Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return oops.With("settings_path", s.path).Wrap(err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return oops.With("settings_path", s.path, "context", "failed to replace settings").Wrap(err)
	}
	return nil
}
