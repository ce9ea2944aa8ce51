// Package extractor turns fetched HTML into a models.ScrapedRecord.
//
// Every field has an ordered fallback chain that prefers data the page
// author declared (OpenGraph, Twitter cards, JSON-LD, link tags) over
// heuristics run against the DOM. Extract is pure: the same HTML and URL
// always produce the same record.
package extractor

import (
	"math"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/linkstash/classifier"
	"github.com/use-agent/linkstash/detector"
	"github.com/use-agent/linkstash/models"
)

const (
	maxTitleLength        = 200
	maxDescriptionLength  = 500
	maxArticleBodyExcerpt = 200
	wordsPerMinute        = 200
)

var selCode = cascadia.MustCompile("pre code")

// field is one step of a fallback chain.
type field func(*page) string

// first returns the first non-empty result of chain.
func first(p *page, chain ...field) string {
	for _, f := range chain {
		if v := strings.TrimSpace(f(p)); v != "" {
			return v
		}
	}
	return ""
}

func metaField(keys ...string) field {
	return func(p *page) string { return p.metaContent(keys...) }
}

func ldField(keys ...string) field {
	return func(p *page) string { return p.firstLD(keys...) }
}

// notBlockTitle drops candidates that are challenge page titles.
func notBlockTitle(f field) field {
	return func(p *page) string {
		v := f(p)
		if detector.IsBlockTitle(v) || strings.EqualFold(strings.TrimSpace(v), "untitled") {
			return ""
		}
		return v
	}
}

var titleChain = []field{
	notBlockTitle(metaField("og:title")),
	notBlockTitle(metaField("twitter:title")),
	notBlockTitle((*page).docTitle),
	notBlockTitle(ldField("name", "headline")),
	func(p *page) string { return HumanizeURL(p.base) },
}

var descriptionChain = []field{
	metaField("og:description"),
	metaField("twitter:description"),
	metaField("description"),
	ldField("description"),
	func(p *page) string {
		return truncateRunes(normalizeText(p.firstLD("articleBody")), maxArticleBodyExcerpt)
	},
}

var canonicalChain = []field{
	func(p *page) string { return p.resolve(p.links("canonical").First().AttrOr("href", "")) },
	func(p *page) string { return p.resolve(p.metaContent("og:url")) },
	func(p *page) string { return p.input },
}

var faviconRels = map[string]struct{}{
	"icon": {}, "shortcut icon": {}, "apple-touch-icon": {}, "mask-icon": {},
}

// favicon returns the last declared icon link of any icon rel.
func (p *page) favicon() string {
	icon := ""
	p.doc.FindMatcher(selLink).Each(func(_ int, s *goquery.Selection) {
		if _, ok := faviconRels[linkRel(s)]; !ok {
			return
		}
		if u := p.resolve(s.AttrOr("href", "")); u != "" {
			icon = u
		}
	})
	if icon == "" {
		return DefaultFavicon(p.base)
	}
	return icon
}

func (p *page) publishedTime() string {
	return p.metaContent("article:published_time")
}

func (p *page) videoURL(ct models.ContentType) string {
	for _, k := range []string{"og:video:secure_url", "og:video:url", "og:video"} {
		if u := p.resolve(p.meta[k]); u != "" {
			return u
		}
	}
	if ct == models.ContentVideo {
		return p.base.String()
	}
	return ""
}

// Extract builds a record from rawHTML fetched for pageURL. expected is the
// pre-fetch classification; page signals refine it and the refined type is
// final. pageURL must be an absolute http(s) URL.
func Extract(rawHTML, pageURL string, expected models.ContentType) models.ScrapedRecord {
	return ExtractRedirected(rawHTML, pageURL, pageURL, expected)
}

// ExtractRedirected is Extract for HTML that a request for inputURL received
// from pageURL after redirects. Relative links resolve against pageURL; a page
// without a declared canonical URL gets inputURL.
func ExtractRedirected(rawHTML, pageURL, inputURL string, expected models.ContentType) models.ScrapedRecord {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = &url.URL{}
	}
	p := newPage(rawHTML, base)
	p.input = inputURL

	title := truncateRunes(normalizeText(first(p, titleChain...)), maxTitleLength)
	if title == "" {
		title = pageURL
	}
	description := truncateRunes(normalizeText(first(p, descriptionChain...)), maxDescriptionLength)

	declared, _ := p.declaredPrice()
	ct := classifier.Classify(base, &classifier.Signals{
		OGType:           p.ogType(),
		HasVideoMeta:     p.hasMetaPrefix("og:video"),
		HasDeclaredPrice: declared != "",
	})
	if ct == models.ContentWebsite && expected.Valid() {
		ct = expected
	}

	price, currency := p.price()

	rec := models.ScrapedRecord{
		URL:         pageURL,
		Title:       title,
		Description: description,
		ContentType: ct,
		Image:       models.StringPtr(p.image()),
		Meta: models.Meta{
			SiteName:      p.metaContent("og:site_name"),
			Favicon:       p.favicon(),
			CanonicalURL:  first(p, canonicalChain...),
			Price:         price,
			Currency:      currency,
			Author:        p.metaContent("author", "article:author"),
			PublishedTime: p.publishedTime(),
			HasCode:       p.doc.FindMatcher(selCode).Length() > 0,
			VideoURL:      p.videoURL(ct),
		},
	}

	if ct == models.ContentArticle || len([]rune(description)) < shortDescription {
		rec.Content, rec.TextContent = extractContent(rawHTML, p)
	} else {
		rec.TextContent = bodyText(rawHTML)
	}
	rec.TextContent = truncateRunes(rec.TextContent, MaxTextLength)
	rec.Meta.ReadingTimeMinutes = ReadingTime(rec.TextContent)

	return rec
}

// ReadingTime estimates minutes to read text at 200 words per minute.
func ReadingTime(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) / wordsPerMinute))
}
