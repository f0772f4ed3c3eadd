package repository

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	texttemplate "text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/gorilla/feeds"
	"github.com/reshetovitsme/rss-magazine/internal/modules/magazine/domain"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
)

//go:embed templates/*
var embedded embed.FS

// Output file names of a rendered issue
const (
	ManifestFile = "content.opf"
	TOCHTMLFile  = "toc.html"
	TOCNCXFile   = "toc.ncx"
	IndexFeed    = "feed.xml"
	articleFile  = "article.html"
)

// EmbeddedTemplates returns the built-in template set
func EmbeddedTemplates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplateRenderer writes a magazine as OPF manifest, NCX and HTML
// navigation, one HTML document per article and an Atom index
type TemplateRenderer struct {
	dir         string
	text        *texttemplate.Template
	html        *htmltemplate.Template
	concurrency int
}

// NewTemplateRenderer parses the templates in templates (the embedded set
// when nil) and renders into dir
func NewTemplateRenderer(dir string, templates fs.FS, concurrency int) (*TemplateRenderer, error) {
	if templates == nil {
		templates = EmbeddedTemplates()
	}

	text, err := texttemplate.New("magazine").Funcs(sprig.TxtFuncMap()).ParseFS(templates, ManifestFile, TOCNCXFile)
	if err != nil {
		return nil, oops.With("context", "failed to parse xml templates").Wrap(err)
	}
	html, err := htmltemplate.New("magazine").Funcs(sprig.HtmlFuncMap()).ParseFS(templates, TOCHTMLFile, articleFile)
	if err != nil {
		return nil, oops.With("context", "failed to parse html templates").Wrap(err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, oops.With("content_dir", dir, "context", "failed to create content directory").Wrap(err)
	}

	return &TemplateRenderer{
		dir:         dir,
		text:        text,
		html:        html,
		concurrency: max(concurrency, 1),
	}, nil
}

type navView struct {
	Magazine *domain.Magazine
	// Order maps "section-N" and article ids to their NCX playOrder
	Order map[string]int
}

type articleView struct {
	Title   string
	Content htmltemplate.HTML
}

// Render writes every article first and the navigation files last, so a
// readable content.opf only exists once all documents it lists do.
func (r *TemplateRenderer) Render(ctx context.Context, magazine *domain.Magazine) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, article := range magazine.Articles() {
		g.Go(func() error {
			return r.RenderArticle(gctx, article)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := r.write(TOCHTMLFile, func(w io.Writer) error {
		return r.html.ExecuteTemplate(w, TOCHTMLFile, magazine)
	}); err != nil {
		return err
	}

	if err := r.write(TOCNCXFile, func(w io.Writer) error {
		return r.text.ExecuteTemplate(w, TOCNCXFile, navView{Magazine: magazine, Order: playOrder(magazine)})
	}); err != nil {
		return err
	}

	if err := r.write(IndexFeed, func(w io.Writer) error {
		return indexFeed(magazine).WriteAtom(w)
	}); err != nil {
		return err
	}

	return r.write(ManifestFile, func(w io.Writer) error {
		return r.text.ExecuteTemplate(w, ManifestFile, magazine)
	})
}

// RenderArticle writes the document of a single article
func (r *TemplateRenderer) RenderArticle(ctx context.Context, article *domain.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.write(article.FileName(), func(w io.Writer) error {
		return r.html.ExecuteTemplate(w, articleFile, articleView{
			Title: article.Title,
			// Content passed the sanitizer allow list
			Content: htmltemplate.HTML(article.Content),
		})
	})
}

func (r *TemplateRenderer) write(name string, render func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return oops.With("file", name, "context", "failed to render").Wrap(err)
	}

	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return oops.With("path", path, "context", "failed to write").Wrap(err)
	}
	return nil
}

func playOrder(magazine *domain.Magazine) map[string]int {
	order := make(map[string]int)
	next := 1
	for s, section := range magazine.Sections {
		order[fmt.Sprintf("section-%d", s)] = next
		next++
		for _, article := range section.Articles {
			order[article.ID] = next
			next++
		}
	}
	return order
}

func indexFeed(magazine *domain.Magazine) *feeds.Feed {
	created, err := time.Parse(domain.DateLayout, magazine.Date)
	if err != nil {
		created = time.Now()
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s %s", magazine.Title, magazine.Date),
		Link:        &feeds.Link{Href: TOCHTMLFile},
		Description: fmt.Sprintf("%d articles from %d feeds", len(magazine.Articles()), len(magazine.Sections)),
		Id:          "urn:uuid:" + magazine.ID,
		Created:     created,
	}

	for _, section := range magazine.Sections {
		for _, article := range section.Articles {
			feed.Items = append(feed.Items, &feeds.Item{
				Title:       article.Title,
				Link:        &feeds.Link{Href: article.FileName()},
				Source:      &feeds.Link{Href: article.Link},
				Author:      &feeds.Author{Name: section.Title},
				Description: article.Excerpt,
				Id:          "urn:uuid:" + article.ID,
				Created:     created,
			})
		}
	}
	return feed
}
