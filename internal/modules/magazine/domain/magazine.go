package domain

import (
	imageDomain "github.com/reshetovitsme/rss-magazine/internal/modules/image/domain"
	"github.com/samber/lo"
)

// DateLayout formats the issue date
const DateLayout = "2006-01-02"

// Article is one sanitized feed entry with its resolved images.
// Content only carries allow-listed markup; every img src matches
// ImageIDs by position.
type Article struct {
	ID       string
	Title    string
	Link     string
	Excerpt  string
	Content  string
	ImageIDs []string
	Images   []imageDomain.Image
}

// FileName is the name the rendered article is stored under
func (a *Article) FileName() string {
	return a.ID + ".html"
}

// Section groups the new articles of one feed. FeedIndex is the position
// of the feed in the settings feed list and Watermark the link of the
// newest selected entry.
type Section struct {
	Title     string
	FeedURL   string
	FeedIndex int
	Watermark string
	Articles  []*Article
}

// Magazine is the root of one run's output
type Magazine struct {
	ID       string
	Title    string
	Date     string
	Sections []*Section
}

// Articles lists every article in section order
func (m *Magazine) Articles() []*Article {
	return lo.FlatMap(m.Sections, func(s *Section, _ int) []*Article {
		return s.Articles
	})
}

// Images lists every stored image in article order
func (m *Magazine) Images() []imageDomain.Image {
	return lo.FlatMap(m.Articles(), func(a *Article, _ int) []imageDomain.Image {
		return a.Images
	})
}
