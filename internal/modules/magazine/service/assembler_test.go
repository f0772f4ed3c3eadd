package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	articleService "github.com/reshetovitsme/rss-magazine/internal/modules/article/service"
	feedDomain "github.com/reshetovitsme/rss-magazine/internal/modules/feed/domain"
	imageDomain "github.com/reshetovitsme/rss-magazine/internal/modules/image/domain"
	imageService "github.com/reshetovitsme/rss-magazine/internal/modules/image/service"
	"github.com/reshetovitsme/rss-magazine/internal/modules/magazine/domain"
	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedResult struct {
	entries []feedDomain.Entry
	newest  string
	err     error
	delay   time.Duration
}

type fakeFeeds struct {
	mu      sync.Mutex
	results map[string]feedResult
	calls   map[string]int
}

func newFakeFeeds(results map[string]feedResult) *fakeFeeds {
	return &fakeFeeds{results: results, calls: map[string]int{}}
}

func (f *fakeFeeds) NewEntries(ctx context.Context, cfg *feedDomain.FeedConfig) ([]feedDomain.Entry, string, error) {
	f.mu.Lock()
	f.calls[cfg.URL]++
	res, ok := f.results[cfg.URL]
	f.mu.Unlock()

	if !ok {
		return nil, "", errors.ErrNoNewEntries
	}
	if res.delay > 0 {
		time.Sleep(res.delay)
	}
	return res.entries, res.newest, res.err
}

// passImages leaves bodies untouched and reports one image per img tag
type passImages struct {
	err error
}

func (p passImages) Process(_ context.Context, cleanHTML, _ string) (*imageService.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	n := strings.Count(cleanHTML, "<img")
	return &imageService.Result{
		HTML: cleanHTML,
		ImageIDs: lo.Times(n, func(i int) string {
			return fmt.Sprintf("img-%d", i)
		}),
		Images: lo.Times(n, func(i int) imageDomain.Image {
			return imageDomain.Image{ID: fmt.Sprintf("img-%d", i), MediaType: imageDomain.MediaType}
		}),
	}, nil
}

func textEntry(link, text string) feedDomain.Entry {
	return feedDomain.Entry{Title: "Title " + link, Link: link, RawContentHTML: "<p>" + text + "</p>"}
}

func newTestAssembler(feeds FeedSource, images ImageProcessor) *Assembler {
	a := NewAssembler(feeds, articleService.NewSanitizer(), images, AssemblerOptions{FeedConcurrency: 4, ArticleConcurrency: 4}, nil)
	var mu sync.Mutex
	n := 0
	a.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
	a.now = func() time.Time {
		return time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	}
	return a
}

func TestAssembler_BuildArticle(t *testing.T) {
	a := newTestAssembler(newFakeFeeds(nil), passImages{})

	article, err := a.BuildArticle(context.Background(), feedDomain.Entry{
		Title:          "Hello",
		Link:           "http://example.com/1",
		RawContentHTML: `<div><script>x()</script><figure><img src="http://example.com/a.png"><figcaption>cap</figcaption></figure><p onclick="y()"> Lead text </p></div>`,
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello", article.Title)
	assert.Equal(t, "http://example.com/1", article.Link)
	assert.Equal(t, "Lead text", article.Excerpt)
	assert.NotContains(t, article.Content, "script")
	assert.NotContains(t, article.Content, "onclick")
	assert.Equal(t, []string{"img-0"}, article.ImageIDs)
	assert.NotEmpty(t, article.ID)
}

func TestAssembler_BuildArticle_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "nothing survives sanitizing", raw: `<script>alert(1)</script>`, want: errors.ErrEmptyContent},
		{name: "blank content", raw: "   ", want: errors.ErrEmptyContent},
		{name: "figure only", raw: `<figure><img src="http://example.com/a.png"><figcaption>caption</figcaption></figure>`, want: errors.ErrNoExcerpt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAssembler(newFakeFeeds(nil), passImages{err: oops.Errorf("must not be called")})
			_, err := a.BuildArticle(context.Background(), feedDomain.Entry{Link: "http://example.com/x", RawContentHTML: tt.raw})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAssembler_BuildSection_KeepsEntryOrder(t *testing.T) {
	entries := lo.Times(6, func(i int) feedDomain.Entry {
		return textEntry(fmt.Sprintf("http://example.com/%d", i), fmt.Sprintf("text %d", i))
	})
	// drop two entries in the middle
	entries[2].RawContentHTML = "<figure><img src=\"x.png\"></figure>"
	entries[4].RawContentHTML = ""

	feeds := newFakeFeeds(map[string]feedResult{
		"http://feed": {entries: entries, newest: entries[0].Link},
	})
	a := newTestAssembler(feeds, passImages{})

	section, err := a.BuildSection(context.Background(), &feedDomain.FeedConfig{URL: "http://feed", Title: "Feed"})
	require.NoError(t, err)

	assert.Equal(t, "Feed", section.Title)
	assert.Equal(t, "http://feed", section.FeedURL)
	assert.Equal(t, "http://example.com/0", section.Watermark)
	assert.Equal(t,
		[]string{"text 0", "text 1", "text 3", "text 5"},
		lo.Map(section.Articles, func(a *domain.Article, _ int) string { return a.Excerpt }))
}

func TestAssembler_BuildSection_NoArticles(t *testing.T) {
	feeds := newFakeFeeds(map[string]feedResult{
		"http://feed": {
			entries: []feedDomain.Entry{{Link: "http://example.com/1", RawContentHTML: "<figure><img src=\"a.png\"></figure>"}},
			newest:  "http://example.com/1",
		},
	})
	a := newTestAssembler(feeds, passImages{})

	_, err := a.BuildSection(context.Background(), &feedDomain.FeedConfig{URL: "http://feed"})
	assert.ErrorIs(t, err, errors.ErrNoArticles)
}

func TestAssembler_BuildMagazine(t *testing.T) {
	feeds := newFakeFeeds(map[string]feedResult{
		// the first feed finishes last
		"http://a": {entries: []feedDomain.Entry{textEntry("http://a/1", "a1")}, newest: "http://a/1", delay: 30 * time.Millisecond},
		"http://b": {err: oops.Wrapf(errors.ErrNetwork, "status 500")},
		"http://c": {entries: []feedDomain.Entry{textEntry("http://c/1", "c1"), textEntry("http://c/2", "c2")}, newest: "http://c/1"},
	})
	a := newTestAssembler(feeds, passImages{})

	settings := &feedDomain.Settings{
		Title: "Morning",
		FeedList: []*feedDomain.FeedConfig{
			{URL: "http://a", Title: "A"},
			{URL: "http://b", Title: "B"},
			{URL: "http://c", Title: "C"},
			{URL: "http://d", Title: "D"},
		},
	}

	magazine, err := a.BuildMagazine(context.Background(), settings)
	require.NoError(t, err)

	assert.Equal(t, "Morning", magazine.Title)
	assert.Equal(t, "2026-10-14", magazine.Date)
	assert.NotEmpty(t, magazine.ID)
	assert.Equal(t, []string{"A", "C"}, lo.Map(magazine.Sections, func(s *domain.Section, _ int) string { return s.Title }))
	assert.Equal(t, []int{0, 2}, lo.Map(magazine.Sections, func(s *domain.Section, _ int) int { return s.FeedIndex }))
	assert.Len(t, magazine.Articles(), 3)

	for _, cfg := range settings.FeedList {
		assert.Nil(t, cfg.LastLink, "settings must not be modified while assembling")
		assert.Equal(t, 1, feeds.calls[cfg.URL])
	}
}

func TestAssembler_BuildMagazine_Empty(t *testing.T) {
	a := newTestAssembler(newFakeFeeds(nil), passImages{})

	_, err := a.BuildMagazine(context.Background(), &feedDomain.Settings{
		FeedList: []*feedDomain.FeedConfig{{URL: "http://a"}, {URL: "http://b"}},
	})
	assert.ErrorIs(t, err, errors.ErrNoMagazine)

	_, err = a.BuildMagazine(context.Background(), &feedDomain.Settings{})
	assert.ErrorIs(t, err, errors.ErrNoMagazine)
}

func TestAssembler_BuildMagazine_DefaultTitle(t *testing.T) {
	feeds := newFakeFeeds(map[string]feedResult{
		"http://a": {entries: []feedDomain.Entry{textEntry("http://a/1", "a1")}, newest: "http://a/1"},
	})
	a := newTestAssembler(feeds, passImages{})

	magazine, err := a.BuildMagazine(context.Background(), &feedDomain.Settings{
		FeedList: []*feedDomain.FeedConfig{{URL: "http://a"}},
	})
	require.NoError(t, err)
	assert.Equal(t, feedDomain.DefaultTitle, magazine.Title)
}
