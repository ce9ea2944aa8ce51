package extractor

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
)

// MaxTextLength caps TextContent, in runes.
const MaxTextLength = 5000

// minContentLength is the minimum text length for an extraction stage to be
// considered successful.
const minContentLength = 50

// shortDescription is the description length below which the body is
// extracted even for non-article pages.
const shortDescription = 80

// selBoilerplate is stripped before the plain body-text scrape.
var selBoilerplate = cascadia.MustCompile(
	`script, style, noscript, template, iframe, svg, nav, footer, header, aside, form, ` +
		`[role="navigation"], [role="banner"], [role="contentinfo"], ` +
		`.ad, .ads, .advert, .advertisement, [class*="sponsor"], [id^="ad-"], [class^="ad-"]`,
)

// extractContent returns the cleaned HTML and plain text of the main content:
// readability first, then the pruning scorer, then the stripped body text
// (with empty HTML).
func extractContent(rawHTML string, p *page) (content, text string) {
	if article, ok := readableArticle(rawHTML, p); ok {
		return article.Content, normalizeText(article.TextContent)
	}

	if pruned, ok := PruneContent(rawHTML); ok {
		if t := normalizeText(stripTags(pruned)); len(t) >= minContentLength {
			return pruned, t
		}
	}

	return "", bodyText(rawHTML)
}

func readableArticle(rawHTML string, p *page) (readability.Article, bool) {
	article, err := readability.FromReader(strings.NewReader(rawHTML), p.base)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", p.base.String(), "error", err)
		return readability.Article{}, false
	}
	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Debug("readability: extracted content too short",
			"url", p.base.String(), "length", len(article.TextContent),
		)
		return readability.Article{}, false
	}
	return article, true
}

// bodyText is the plain-text scrape of <body> with boilerplate removed.
// It parses its own copy of the document so the shared page stays intact.
func bodyText(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	body := doc.Find("body")
	body.FindMatcher(selBoilerplate).Remove()
	return normalizeText(body.Text())
}

// stripTags returns the text of an HTML fragment.
func stripTags(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}

// normalizeText collapses whitespace runs to single spaces.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return strings.TrimSpace(s[:i])
		}
		count++
	}
	return s
}
