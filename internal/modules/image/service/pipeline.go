package service

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	fetchService "github.com/reshetovitsme/rss-magazine/internal/modules/fetch/service"
	"github.com/reshetovitsme/rss-magazine/internal/modules/image/domain"
	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	"github.com/reshetovitsme/rss-magazine/internal/shared/metrics"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of processing one article body
type Result struct {
	// HTML is the body with every img src rewritten to {id}.jpg
	HTML string
	// ImageIDs is parallel to the img elements in document order and
	// holds domain.SentinelID for images that failed
	ImageIDs []string
	// Images are the successfully normalized images in document order
	Images []domain.Image
}

// Pipeline fetches, normalizes and renames the images of an article body
type Pipeline struct {
	fetcher     fetchService.Fetcher
	normalizer  *Normalizer
	concurrency int
	newID       func() string
	logger      *slog.Logger
}

// NewPipeline creates an image pipeline fetching at most concurrency images
// of one body at a time
func NewPipeline(fetcher fetchService.Fetcher, normalizer *Normalizer, concurrency int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pipeline{
		fetcher:     fetcher,
		normalizer:  normalizer,
		concurrency: concurrency,
		newID:       uuid.NewString,
		logger:      logger,
	}
}

// slot holds the outcome for the img element at the same index
type slot struct {
	id    string
	image *domain.Image
}

// Process resolves every img in cleanHTML, relative sources against base.
// A failing image never fails the call: it is given the sentinel id.
// Elements are patched by index after all fetches finish, so completion
// order cannot change which element gets which id.
func (p *Pipeline) Process(ctx context.Context, cleanHTML, base string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleanHTML))
	if err != nil {
		return nil, oops.Wrapf(errors.ErrParse, "parse article body: %v", err)
	}

	imgs := doc.Find("img")
	sources := imgs.Map(func(_ int, sel *goquery.Selection) string {
		return resolveURL(base, sel.AttrOr("src", ""))
	})
	slots := make([]slot, len(sources))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			slots[i] = p.resolve(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	imgs.Each(func(i int, sel *goquery.Selection) {
		sel.SetAttr("src", domain.FileName(slots[i].id))
	})

	body, err := doc.Find("body").Html()
	if err != nil {
		return nil, oops.Wrapf(errors.ErrParse, "render article body: %v", err)
	}

	return &Result{
		HTML: body,
		ImageIDs: lo.Map(slots, func(s slot, _ int) string {
			return s.id
		}),
		Images: lo.FilterMap(slots, func(s slot, _ int) (domain.Image, bool) {
			if s.image == nil {
				return domain.Image{}, false
			}
			return *s.image, true
		}),
	}, nil
}

func (p *Pipeline) resolve(ctx context.Context, src string) slot {
	if src == "" {
		metrics.RecordImage("sentinel")
		return slot{id: domain.SentinelID}
	}

	data, err := p.fetcher.Fetch(ctx, src)
	if err != nil {
		p.logger.Warn("Image fetch failed, using sentinel", "image_url", src, "error", err)
		metrics.RecordImage("sentinel")
		return slot{id: domain.SentinelID}
	}

	encoded, err := p.normalizer.Normalize(data)
	if err != nil {
		p.logger.Warn("Image normalization failed, using sentinel", "image_url", src, "error", err)
		metrics.RecordImage("sentinel")
		return slot{id: domain.SentinelID}
	}

	metrics.RecordImage("ok")
	id := p.newID()
	return slot{
		id: id,
		image: &domain.Image{
			ID:        id,
			Data:      encoded,
			MediaType: domain.MediaType,
		},
	}
}

func resolveURL(base, src string) string {
	if src == "" || base == "" {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil || ref.IsAbs() {
		return src
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return src
	}
	return baseURL.ResolveReference(ref).String()
}
