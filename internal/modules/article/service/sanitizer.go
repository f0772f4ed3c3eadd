package service

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// AllowedElements are the only tags kept in article bodies
var AllowedElements = []string{"div", "p", "figure", "img", "figcaption"}

// Sanitizer reduces feed HTML to the magazine's tag and attribute set.
// It is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer creates a sanitizer keeping AllowedElements and the src
// attribute of img. Sources must be http(s) or relative URLs.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(AllowedElements...)
	p.AllowAttrs("src").OnElements("img")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https")

	return &Sanitizer{policy: p}
}

// Sanitize strips html down to the allow list. Text of removed tags is kept;
// script and style bodies are dropped.
func (s *Sanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// Excerpt returns the first non-blank text node outside any figure.
// ok is false when the body carries no lead text.
func Excerpt(cleanHTML string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleanHTML))
	if err != nil {
		return "", false
	}
	doc.Find("figure").Remove()

	for _, node := range doc.Find("body").Nodes {
		if text, found := firstText(node); found {
			return text, true
		}
	}
	return "", false
}

func firstText(n *html.Node) (string, bool) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			return text, true
		}
		return "", false
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if text, found := firstText(c); found {
			return text, true
		}
	}
	return "", false
}
