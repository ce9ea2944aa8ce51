// Package detector decides whether fetched HTML is a usable page or an
// anti-bot challenge, error stub or client-rendered shell.
package detector

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	// incidentalTextLen is the visible text length above which a challenge
	// phrase is assumed to appear in real content.
	incidentalTextLen = 1500

	// stubHTMLLen is the raw length below which a doctype-less document is
	// treated as an error stub.
	stubHTMLLen = 1000

	// shellTextLen is the visible text length below which a page with no
	// recognized meta is treated as an empty JS shell.
	shellTextLen = 50

	// appShellTextLen applies to pages titled like a known app shell.
	appShellTextLen = 200
)

var challengePhrases = []string{
	"verify you are human",
	"checking your browser",
	"just a moment",
	"attention required",
	"captcha",
	"enable javascript and cookies to continue",
	"please enable cookies",
	"javascript is disabled",
	"access denied",
	"security check",
	"challenge-platform",
	"cf-browser-verification",
	"are you a robot",
	"robot check",
}

// appShellTitles are <title> values served by social apps before hydration.
var appShellTitles = toSet("twitter", "x", "x.com")

// IsBlocked reports whether html is unusable as a page. The checks run in a
// fixed order and the first decisive one wins.
func IsBlocked(html string) bool {
	if strings.TrimSpace(html) == "" {
		return true
	}

	s := scan(html)
	if s.hasOpenGraph {
		return false
	}

	lower := strings.ToLower(html)
	textLen := utf8.RuneCountInString(s.text)

	for _, p := range challengePhrases {
		if strings.Contains(lower, p) {
			return textLen < incidentalTextLen
		}
	}

	if len(html) < stubHTMLLen && !strings.Contains(lower, "<!doctype") {
		return true
	}

	if _, ok := appShellTitles[strings.ToLower(s.title)]; ok && textLen < appShellTextLen {
		return true
	}

	return textLen < shellTextLen && !s.hasMeta
}

// VisibleText returns the whitespace-normalized text a reader would see,
// skipping the head and script, style, noscript and template content.
func VisibleText(html string) string {
	return scan(html).text
}

// Title returns the trimmed text of the document <title>.
func Title(html string) string {
	return scan(html).title
}

// ErrErrorPage is returned by ValidateResult for extracted results that are
// really error or challenge pages.
var ErrErrorPage = errors.New("detector: extracted result is an error page")

var blockTitles = toSet(
	"just a moment", "just a moment...",
	"attention required!", "attention required! | cloudflare",
	"security check", "access denied", "robot check",
	"please wait", "please wait...",
	"403 forbidden", "forbidden",
	"404 not found", "not found", "page not found",
	"are you a robot?", "verify you are human", "human verification",
	"one more step", "ddos-guard",
	"checking your browser", "checking your browser...",
	"pardon our interruption", "access to this page has been denied",
)

var errorPhrases = []string{
	"page not found",
	"404",
	"access denied",
	"403 forbidden",
	"are you a robot",
}

// IsBlockTitle reports whether title is a known challenge or error page title.
func IsBlockTitle(title string) bool {
	_, ok := blockTitles[strings.ToLower(strings.TrimSpace(title))]
	return ok
}

// ValidateResult rejects extracted results whose title or description show
// that the fetched page was an error rendered inside a valid-looking shell.
func ValidateResult(title, description string) error {
	if IsBlockTitle(title) {
		return fmt.Errorf("%w: title %q", ErrErrorPage, title)
	}
	lt := strings.ToLower(title)
	ld := strings.ToLower(description)
	for _, p := range errorPhrases {
		if strings.Contains(lt, p) || strings.Contains(ld, p) {
			return fmt.Errorf("%w: contains %q", ErrErrorPage, p)
		}
	}
	return nil
}

type scanResult struct {
	text  string
	title string

	// hasOpenGraph is set by og:title, og:description or og:image.
	hasOpenGraph bool

	// hasMeta is set by any og:*, twitter:* or description meta.
	hasMeta bool
}

// scan walks the document once with the tokenizer.
func scan(doc string) scanResult {
	var (
		res       scanResult
		buf       strings.Builder
		title     strings.Builder
		inHead    bool
		inTitle   bool
		titleDone bool
		skipDepth int
	)

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			res.text = strings.TrimSpace(buf.String())
			res.title = strings.TrimSpace(title.String())
			return res

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			switch string(tn) {
			case "head":
				inHead = true
			case "body":
				inHead = false
			case "title":
				inTitle = tt == html.StartTagToken
			case "script", "style", "noscript", "template":
				if tt == html.StartTagToken {
					skipDepth++
				}
			case "meta":
				if hasAttr {
					checkMeta(z, &res)
				}
			}

		case html.EndTagToken:
			tn, _ := z.TagName()
			switch string(tn) {
			case "head":
				inHead = false
			case "title":
				if inTitle {
					titleDone = true
				}
				inTitle = false
			case "script", "style", "noscript", "template":
				if skipDepth > 0 {
					skipDepth--
				}
			}

		case html.TextToken:
			// Only the document title counts; later ones belong to inline SVG.
			if inTitle {
				if !titleDone {
					title.Write(z.Text())
				}
				continue
			}
			if inHead || skipDepth > 0 {
				continue
			}
			for _, w := range strings.Fields(string(z.Text())) {
				if buf.Len() > 0 {
					buf.WriteByte(' ')
				}
				buf.WriteString(w)
			}
		}
	}
}

func toSet(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

func checkMeta(z *html.Tokenizer, res *scanResult) {
	for {
		k, v, more := z.TagAttr()
		key := string(k)
		if key == "property" || key == "name" {
			name := strings.ToLower(strings.TrimSpace(string(v)))
			switch {
			case name == "og:title", name == "og:description", name == "og:image":
				res.hasOpenGraph = true
				res.hasMeta = true
			case strings.HasPrefix(name, "og:"),
				strings.HasPrefix(name, "twitter:"),
				name == "description":
				res.hasMeta = true
			}
		}
		if !more {
			return
		}
	}
}
