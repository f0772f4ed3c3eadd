package service

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/reshetovitsme/rss-magazine/internal/modules/feed/domain"
	fetchService "github.com/reshetovitsme/rss-magazine/internal/modules/fetch/service"
	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Service fetches, parses and windows subscribed feeds
type Service struct {
	fetcher fetchService.Fetcher
	logger  *slog.Logger
}

// New creates a new feed service
func New(fetcher fetchService.Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher: fetcher,
		logger:  logger,
	}
}

// NewEntries fetches the feed and returns the entries newer than its cursor,
// newest first, together with the proposed new cursor. An empty window is
// reported as ErrNoNewEntries.
func (s *Service) NewEntries(ctx context.Context, cfg *domain.FeedConfig) ([]domain.Entry, string, error) {
	body, err := s.fetcher.Fetch(ctx, cfg.URL)
	if err != nil {
		return nil, "", oops.With("feed_url", cfg.URL, "context", "failed to fetch feed").Wrap(err)
	}

	feed, err := Parse(body)
	if err != nil {
		return nil, "", oops.With("feed_url", cfg.URL).Wrap(err)
	}

	entries, newest := SelectNew(feed.Entries, cfg.LastLink, cfg.Limit())
	if newest == nil {
		return nil, "", oops.With("feed_url", cfg.URL).Wrap(errors.ErrNoNewEntries)
	}

	s.logger.Debug("Feed window selected", "feed_url", cfg.URL, "parsed", len(feed.Entries), "selected", len(entries))
	return entries, *newest, nil
}

// Parse decodes RSS, Atom or JSON feed bytes. Each entry's content is
// resolved once: the description when present, otherwise the first content.
func Parse(body []byte) (*domain.FetchedFeed, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, oops.Wrapf(errors.ErrParse, "parse feed: %v", err)
	}

	entries := lo.Map(parsed.Items, func(item *gofeed.Item, _ int) domain.Entry {
		return domain.Entry{
			Title:          strings.TrimSpace(item.Title),
			Link:           item.Link,
			RawContentHTML: rawContent(item),
		}
	})

	return &domain.FetchedFeed{
		Title:   parsed.Title,
		Entries: entries,
	}, nil
}

func rawContent(item *gofeed.Item) string {
	if strings.TrimSpace(item.Description) != "" {
		return item.Description
	}
	return item.Content
}

// SelectNew takes at most limit entries from the head of entries and cuts
// the window at the first entry whose link equals watermark (exclusive).
// newest is the link of the first selected entry, nil for an empty window.
func SelectNew(entries []domain.Entry, watermark *string, limit int) ([]domain.Entry, *string) {
	if limit < 0 {
		limit = 0
	}
	window := entries[:min(limit, len(entries))]

	if watermark != nil {
		if _, index, found := lo.FindIndexOf(window, func(entry domain.Entry) bool {
			return entry.Link == *watermark
		}); found {
			window = window[:index]
		}
	}

	if len(window) == 0 {
		return nil, nil
	}

	newest := window[0].Link
	return window, &newest
}
