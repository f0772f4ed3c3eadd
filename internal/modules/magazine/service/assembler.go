package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	articleService "github.com/reshetovitsme/rss-magazine/internal/modules/article/service"
	feedDomain "github.com/reshetovitsme/rss-magazine/internal/modules/feed/domain"
	imageService "github.com/reshetovitsme/rss-magazine/internal/modules/image/service"
	"github.com/reshetovitsme/rss-magazine/internal/modules/magazine/domain"
	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	"github.com/reshetovitsme/rss-magazine/internal/shared/metrics"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
)

// FeedSource yields the entries of a feed newer than its cursor
type FeedSource interface {
	NewEntries(ctx context.Context, cfg *feedDomain.FeedConfig) ([]feedDomain.Entry, string, error)
}

// ContentSanitizer reduces raw entry HTML to the allowed markup
type ContentSanitizer interface {
	Sanitize(raw string) string
}

// ImageProcessor resolves and rewrites the images of a sanitized body
type ImageProcessor interface {
	Process(ctx context.Context, cleanHTML, base string) (*imageService.Result, error)
}

// AssemblerOptions bounds the fan-out of each stage
type AssemblerOptions struct {
	FeedConcurrency    int
	ArticleConcurrency int
}

// Assembler builds the article, section and magazine graph of one run.
// Every feed, entry and image is its own failure domain.
type Assembler struct {
	feeds     FeedSource
	sanitizer ContentSanitizer
	images    ImageProcessor
	opts      AssemblerOptions
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

// NewAssembler creates a new assembler
func NewAssembler(feeds FeedSource, sanitizer ContentSanitizer, images ImageProcessor, opts AssemblerOptions, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	opts.FeedConcurrency = max(opts.FeedConcurrency, 1)
	opts.ArticleConcurrency = max(opts.ArticleConcurrency, 1)

	return &Assembler{
		feeds:     feeds,
		sanitizer: sanitizer,
		images:    images,
		opts:      opts,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// BuildMagazine runs every configured feed concurrently and collects the
// resulting sections in feed-list order. It returns ErrNoMagazine when no
// feed produced a section. Settings are only read.
func (a *Assembler) BuildMagazine(ctx context.Context, settings *feedDomain.Settings) (*domain.Magazine, error) {
	slots := make([]*domain.Section, len(settings.FeedList))

	var g errgroup.Group
	g.SetLimit(a.opts.FeedConcurrency)
	for i, feed := range settings.FeedList {
		g.Go(func() error {
			section, err := a.BuildSection(ctx, feed)
			if err != nil {
				a.logUnitFailure("Feed skipped", err, "feed_url", feed.URL)
				return nil
			}
			section.FeedIndex = i
			slots[i] = section
			return nil
		})
	}
	_ = g.Wait()

	sections := lo.Compact(slots)
	if len(sections) == 0 {
		return nil, errors.ErrNoMagazine
	}

	return &domain.Magazine{
		ID:       a.newID(),
		Title:    settings.MagazineTitle(),
		Date:     a.now().Format(domain.DateLayout),
		Sections: sections,
	}, nil
}

// BuildSection turns the new entries of one feed into a section. Articles
// keep the feed's newest-first order regardless of completion order.
func (a *Assembler) BuildSection(ctx context.Context, feed *feedDomain.FeedConfig) (*domain.Section, error) {
	entries, newest, err := a.feeds.NewEntries(ctx, feed)
	if err != nil {
		return nil, err
	}

	slots := make([]*domain.Article, len(entries))

	var g errgroup.Group
	g.SetLimit(a.opts.ArticleConcurrency)
	for i, entry := range entries {
		g.Go(func() error {
			article, err := a.BuildArticle(ctx, entry)
			if err != nil {
				metrics.RecordArticle("dropped")
				a.logUnitFailure("Entry skipped", err, "feed_url", feed.URL, "entry_link", entry.Link)
				return nil
			}
			metrics.RecordArticle("built")
			slots[i] = article
			return nil
		})
	}
	_ = g.Wait()

	articles := lo.Compact(slots)
	if len(articles) == 0 {
		return nil, oops.With("feed_url", feed.URL, "entries", len(entries)).Wrap(errors.ErrNoArticles)
	}

	return &domain.Section{
		Title:     feed.Title,
		FeedURL:   feed.URL,
		Watermark: newest,
		Articles:  articles,
	}, nil
}

// BuildArticle sanitizes one entry, reads its excerpt and resolves its
// images. Entries without lead text are rejected before any image is
// fetched; failed images become sentinels and never reject the entry.
func (a *Assembler) BuildArticle(ctx context.Context, entry feedDomain.Entry) (*domain.Article, error) {
	clean := a.sanitizer.Sanitize(entry.RawContentHTML)
	if clean == "" {
		return nil, errors.ErrEmptyContent
	}

	excerpt, ok := articleService.Excerpt(clean)
	if !ok {
		return nil, errors.ErrNoExcerpt
	}

	result, err := a.images.Process(ctx, clean, entry.Link)
	if err != nil {
		return nil, oops.With("entry_link", entry.Link).Wrap(err)
	}

	return &domain.Article{
		ID:       a.newID(),
		Title:    entry.Title,
		Link:     entry.Link,
		Excerpt:  excerpt,
		Content:  result.HTML,
		ImageIDs: result.ImageIDs,
		Images:   result.Images,
	}, nil
}

func (a *Assembler) logUnitFailure(msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if errors.IsBenign(err) {
		a.logger.Info(msg, attrs...)
		return
	}
	a.logger.Warn(msg, attrs...)
}
