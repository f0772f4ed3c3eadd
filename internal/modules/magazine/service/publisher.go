package service

import (
	"context"
	"log/slog"
	"sync"

	feedDomain "github.com/reshetovitsme/rss-magazine/internal/modules/feed/domain"
	feedRepo "github.com/reshetovitsme/rss-magazine/internal/modules/feed/repository"
	imageRepo "github.com/reshetovitsme/rss-magazine/internal/modules/image/repository"
	"github.com/reshetovitsme/rss-magazine/internal/modules/magazine/domain"
	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	"github.com/reshetovitsme/rss-magazine/internal/shared/metrics"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
)

// MagazineBuilder assembles the magazine of one run
type MagazineBuilder interface {
	BuildMagazine(ctx context.Context, settings *feedDomain.Settings) (*domain.Magazine, error)
}

// Renderer writes a finished magazine to its output format
type Renderer interface {
	Render(ctx context.Context, magazine *domain.Magazine) error
}

// Notifier announces a published magazine
type Notifier interface {
	Notify(ctx context.Context, magazine *domain.Magazine) error
}

// Publisher runs the whole issue lifecycle: load settings, assemble,
// persist images and documents, then advance the cursors.
type Publisher struct {
	settings feedRepo.Repository
	builder  MagazineBuilder
	images   imageRepo.Repository
	renderer Renderer
	notifier Notifier
	logger   *slog.Logger
	running  sync.Mutex
}

// NewPublisher creates a new publisher; notifier may be nil
func NewPublisher(settings feedRepo.Repository, builder MagazineBuilder, images imageRepo.Repository, renderer Renderer, notifier Notifier, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		settings: settings,
		builder:  builder,
		images:   images,
		renderer: renderer,
		notifier: notifier,
		logger:   logger,
	}
}

// Run publishes one issue. It returns ErrNoMagazine when no feed had new
// articles; in that case nothing is written and no cursor moves. The
// settings file is written last, so a failed render leaves cursors as
// they were.
func (p *Publisher) Run(ctx context.Context) (*domain.Magazine, error) {
	if !p.running.TryLock() {
		return nil, errors.ErrRunInProgress
	}
	defer p.running.Unlock()

	settings, err := p.settings.Load()
	if err != nil {
		metrics.RecordRun("error")
		return nil, err
	}

	magazine, err := p.builder.BuildMagazine(ctx, settings)
	if err != nil {
		if errors.IsBenign(err) {
			metrics.RecordRun("empty")
			p.logger.Info("No new content, nothing published", "feeds", len(settings.FeedList))
		} else {
			metrics.RecordRun("error")
		}
		return nil, err
	}

	if err := p.persist(ctx, magazine); err != nil {
		metrics.RecordRun("error")
		return nil, err
	}

	advanced := ApplyCursors(settings, magazine)
	if err := p.settings.Save(settings); err != nil {
		metrics.RecordRun("error")
		return nil, oops.With("magazine_id", magazine.ID, "context", "failed to persist cursors").Wrap(err)
	}

	metrics.RecordRun("published")
	p.logger.Info("Magazine published",
		"magazine_id", magazine.ID,
		"sections", len(magazine.Sections),
		"articles", len(magazine.Articles()),
		"images", len(magazine.Images()),
		"cursors_advanced", advanced)

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, magazine); err != nil {
			p.logger.Warn("Failed to send notification", "magazine_id", magazine.ID, "error", err)
		}
	}

	return magazine, nil
}

func (p *Publisher) persist(ctx context.Context, magazine *domain.Magazine) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, img := range magazine.Images() {
		g.Go(func() error {
			return p.images.Save(gctx, img)
		})
	}
	if err := g.Wait(); err != nil {
		return oops.With("magazine_id", magazine.ID, "context", "failed to store images").Wrap(err)
	}

	if err := p.renderer.Render(ctx, magazine); err != nil {
		return oops.With("magazine_id", magazine.ID, "context", "failed to render magazine").Wrap(err)
	}
	return nil
}

// ApplyCursors moves the cursor of every feed that produced a section to
// the section's newest link and returns how many feeds advanced. Sections
// are matched to feeds by feed-list position, so duplicate URLs keep
// independent cursors.
func ApplyCursors(settings *feedDomain.Settings, magazine *domain.Magazine) int {
	advanced := 0
	for _, section := range magazine.Sections {
		if section.FeedIndex < 0 || section.FeedIndex >= len(settings.FeedList) || section.Watermark == "" {
			continue
		}
		feed := settings.FeedList[section.FeedIndex]
		if feed.URL != section.FeedURL {
			continue
		}
		feed.Advance(section.Watermark)
		advanced++
	}
	return advanced
}
