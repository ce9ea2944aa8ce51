package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/linkstash/detector"
)

var (
	selMeta   = cascadia.MustCompile("meta")
	selLink   = cascadia.MustCompile("link[rel]")
	selTitle  = cascadia.MustCompile("title")
	selLDJSON = cascadia.MustCompile(`script[type="application/ld+json"]`)
)

// page is a parsed document plus the lookups every field chain shares.
// It is built once per Extract call and never escapes it.
type page struct {
	raw  string
	doc  *goquery.Document
	base *url.URL

	// input is the URL the caller asked for, before redirects.
	input string

	// meta maps a lowercased property/name key to its first non-empty content.
	meta map[string]string

	ld []map[string]any

	// text is the visible body text, computed lazily.
	text    string
	hasText bool
}

func newPage(raw string, base *url.URL) *page {
	// html.Parse recovers from malformed markup and a strings.Reader never
	// fails, so the error is always nil here.
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(raw))
	p := &page{
		raw:  raw,
		doc:  doc,
		base: base,
		meta: make(map[string]string),
	}
	p.indexMeta()
	p.ld = parseJSONLD(doc)
	return p
}

func (p *page) indexMeta() {
	p.doc.FindMatcher(selMeta).Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		for _, attr := range []string{"property", "name"} {
			key := strings.ToLower(strings.TrimSpace(s.AttrOr(attr, "")))
			if key == "" {
				continue
			}
			if _, ok := p.meta[key]; !ok {
				p.meta[key] = content
			}
		}
	})
}

// metaContent returns the first non-empty content among keys.
func (p *page) metaContent(keys ...string) string {
	for _, k := range keys {
		if v := p.meta[k]; v != "" {
			return v
		}
	}
	return ""
}

// hasMetaPrefix reports whether any meta key starts with prefix.
func (p *page) hasMetaPrefix(prefix string) bool {
	for k := range p.meta {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// links returns link elements whose rel attribute equals rel, in document order.
func (p *page) links(rel string) *goquery.Selection {
	return p.doc.FindMatcher(selLink).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return linkRel(s) == rel
	})
}

// linkRel returns the lowercased, space-normalized rel of a link element.
func linkRel(s *goquery.Selection) string {
	return strings.Join(strings.Fields(strings.ToLower(s.AttrOr("rel", ""))), " ")
}

func (p *page) docTitle() string {
	return strings.TrimSpace(p.doc.FindMatcher(selTitle).First().Text())
}

// resolve makes ref absolute against the page URL; see ResolveURL.
func (p *page) resolve(ref string) string {
	return ResolveURL(ref, p.base)
}

// visibleText returns the body text a reader would see.
func (p *page) visibleText() string {
	if !p.hasText {
		p.text = detector.VisibleText(p.raw)
		p.hasText = true
	}
	return p.text
}

func (p *page) ogType() string {
	return strings.ToLower(p.metaContent("og:type"))
}
