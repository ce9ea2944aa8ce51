package extractor

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Image scoring weights.
const (
	minScoredArea    = 5000
	maxAreaBonus     = 50000
	mainBonus        = 20000
	chromePenalty    = -10000
	heroKeywordBonus = 15000
)

var (
	selImg    = cascadia.MustCompile("img")
	selMain   = cascadia.MustCompile(`article, main, [role="main"]`)
	selChrome = cascadia.MustCompile("header, nav, footer, aside")
)

var heroKeywords = []string{"hero", "feature", "cover"}

// declaredImageKeys are the meta tags pages use to declare a preview image,
// strongest first.
var declaredImageKeys = []string{
	"og:image", "og:image:url", "og:image:secure_url",
	"twitter:image", "twitter:image:src",
}

func (p *page) image() string {
	for _, k := range declaredImageKeys {
		if u := p.resolve(p.meta[k]); IsValidImageURL(u) {
			return u
		}
	}

	var linked string
	p.links("image_src").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		linked = p.resolve(s.AttrOr("href", ""))
		return linked == ""
	})
	if IsValidImageURL(linked) {
		return linked
	}

	for _, node := range p.ld {
		for _, k := range []string{"image", "thumbnailUrl"} {
			if u := p.resolve(ldImage(node[k])); u != "" {
				if IsValidImageURL(u) {
					return u
				}
			}
		}
	}

	return p.scoredImage()
}

// scoredImage scans <img> elements and returns the highest positive scorer.
// Ties keep the earlier element.
func (p *page) scoredImage() string {
	var (
		best      string
		bestScore int
	)
	p.doc.FindMatcher(selImg).Each(func(_ int, img *goquery.Selection) {
		u := p.resolve(imgSource(img))
		if !isValidDOMImage(u) {
			return
		}
		if score := scoreImage(img); score > bestScore {
			best, bestScore = u, score
		}
	})
	return best
}

func imgSource(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	srcset := strings.TrimSpace(img.AttrOr("srcset", ""))
	if srcset == "" {
		return ""
	}
	first, _, _ := strings.Cut(srcset, ",")
	if f := strings.Fields(first); len(f) > 0 {
		return f[0]
	}
	return ""
}

func scoreImage(img *goquery.Selection) int {
	score := 0

	area := dimension(img, "width") * dimension(img, "height")
	if area > minScoredArea {
		score += min(area, maxAreaBonus)
	}
	if img.ClosestMatcher(selChrome).Length() > 0 {
		score += chromePenalty
	}
	if img.ClosestMatcher(selMain).Length() > 0 {
		score += mainBonus
	}

	hints := strings.ToLower(img.AttrOr("class", "") + " " + img.AttrOr("alt", ""))
	for _, kw := range heroKeywords {
		if strings.Contains(hints, kw) {
			score += heroKeywordBonus
			break
		}
	}
	return score
}

// dimension parses a width/height attribute, tolerating a "px" suffix.
func dimension(img *goquery.Selection, attr string) int {
	v := strings.TrimSuffix(strings.TrimSpace(img.AttrOr(attr, "")), "px")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
