package extractor

import (
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Pruning keeps the top-level body blocks whose weighted score is positive.
// It is the fallback when readability cannot find an article.
const (
	wTextDensity   = 3.0
	wLinkDensity   = -2.0
	wTagWeight     = 1.5
	wClassIDWeight = 1.0
	wTextLength    = 0.5
)

var (
	selBody   = cascadia.MustCompile("body")
	selAnchor = cascadia.MustCompile("a")
)

var positiveHints = []string{"content", "article", "post", "entry", "body", "main", "text", "story"}

var negativeHints = []string{
	"sidebar", "widget", "nav", "menu", "comment", "footer", "header",
	"banner", "popup", "modal", "cookie", "social", "share", "related",
	"recommend", "promo", "advert", "sponsor",
}

// PruneContent returns the outer HTML of the body blocks that look like main
// content. ok is false when the document has no body or nothing scored.
func PruneContent(rawHTML string) (content string, ok bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", false
	}
	body := doc.FindMatcher(selBody)
	if body.Length() == 0 {
		return "", false
	}

	var kept []string
	body.Children().Each(func(_ int, el *goquery.Selection) {
		if blockScore(el) <= 0 {
			return
		}
		if h, err := goquery.OuterHtml(el); err == nil {
			kept = append(kept, h)
		}
	})
	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, "\n"), true
}

func blockScore(el *goquery.Selection) float64 {
	outer, err := goquery.OuterHtml(el)
	if err != nil || outer == "" {
		return 0
	}
	text := strings.TrimSpace(el.Text())
	if text == "" {
		return 0
	}

	linkLen := 0
	el.FindMatcher(selAnchor).Each(func(_ int, a *goquery.Selection) {
		linkLen += len(strings.TrimSpace(a.Text()))
	})

	textDensity := float64(len(text)) / float64(len(outer))
	linkDensity := float64(linkLen) / float64(len(text))

	return textDensity*wTextDensity +
		linkDensity*wLinkDensity +
		tagWeight(goquery.NodeName(el))*wTagWeight +
		hintWeight(el)*wClassIDWeight +
		math.Log10(float64(len(text))+1)*wTextLength
}

func tagWeight(tag string) float64 {
	switch tag {
	case "article", "main", "section":
		return 5
	case "nav", "footer", "aside", "header", "form":
		return -5
	case "script", "style", "noscript", "template":
		return -10
	}
	return 0
}

// hintWeight scores class and id attributes, counting each direction once.
func hintWeight(el *goquery.Selection) float64 {
	hints := strings.ToLower(el.AttrOr("class", "") + " " + el.AttrOr("id", ""))
	score := 0.0
	if containsAny(hints, positiveHints) {
		score += 3
	}
	if containsAny(hints, negativeHints) {
		score -= 3
	}
	return score
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
