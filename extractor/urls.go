package extractor

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/use-agent/linkstash/detector"
)

// ResolveURL makes ref absolute against base. Protocol-relative references
// get https. Data URIs are returned unchanged. Anything that does not resolve
// to an http(s) URL yields "".
func ResolveURL(ref string, base *url.URL) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(strings.ToLower(ref), "data:"):
		return ref
	case strings.HasPrefix(ref, "//"):
		ref = "https:" + ref
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

var rejectedImagePatterns = []string{
	"placeholder", "default-", "noimage", "no-image", "missing", "1x1.",
	"spacer", "blank.gif", "pixel.gif", "transparent.gif", "tracking", "/pixel",
}

var imageFileExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif"}

var imageCDNs = []string{
	"images.unsplash.com", "i.ytimg.com", "img.youtube.com", "media.giphy.com",
	"m.media-amazon.com", "rukmini", "flixcart.com",
	"opengraph.githubassets.com", "cdn.dribbble.com", "pbs.twimg.com",
}

// minDataURILen is the length below which an inline image is assumed to be a
// spacer or tracking pixel.
const minDataURILen = 5000

// IsValidImageURL reports whether u is acceptable as a record image: an
// http(s) URL or a large inline jpeg/png/webp, not an SVG and not matching a
// placeholder or tracking-pixel pattern.
func IsValidImageURL(u string) bool {
	if u == "" {
		return false
	}
	lower := strings.ToLower(u)

	if strings.HasPrefix(lower, "data:") {
		ok := strings.HasPrefix(lower, "data:image/jpeg") ||
			strings.HasPrefix(lower, "data:image/png") ||
			strings.HasPrefix(lower, "data:image/webp")
		return ok && len(u) > minDataURILen
	}

	parsed, err := url.Parse(u)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return false
	}
	if strings.HasSuffix(strings.ToLower(parsed.Path), ".svg") || strings.Contains(lower, "image/svg+xml") {
		return false
	}
	for _, p := range rejectedImagePatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// isValidDOMImage is IsValidImageURL plus evidence that the URL really serves
// an image, since <img> tags often point at scripts and beacons.
func isValidDOMImage(u string) bool {
	if !IsValidImageURL(u) {
		return false
	}
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "data:") {
		return true
	}
	if parsed, err := url.Parse(lower); err == nil {
		for _, ext := range imageFileExtensions {
			if strings.HasSuffix(parsed.Path, ext) {
				return true
			}
		}
	}
	for _, cdn := range imageCDNs {
		if strings.Contains(lower, cdn) {
			return true
		}
	}
	return false
}

var (
	reSeparators    = regexp.MustCompile(`[-_\s]+`)
	reTrailingID    = regexp.MustCompile(`\s\d+$`)
	reFileExtension = regexp.MustCompile(`\.[a-zA-Z0-9]{1,5}$`)
)

// HumanizeURL derives a readable title from the last path segment of u, e.g.
// "/blog/my-first_post-123" becomes "My First Post". It falls back to the
// hostname when the path has no usable segment or reads as a block page
// title, e.g. "/not-found".
func HumanizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	seg := path.Base(strings.TrimRight(u.Path, "/"))
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}
	seg = reFileExtension.ReplaceAllString(seg, "")
	seg = strings.TrimSpace(reSeparators.ReplaceAllString(seg, " "))
	seg = strings.TrimSpace(reTrailingID.ReplaceAllString(seg, ""))

	if seg == "" || seg == "." || seg == "/" {
		return u.Hostname()
	}
	// Casers keep state and must not be shared across goroutines.
	title := cases.Title(language.Und, cases.NoLower).String(seg)
	if detector.IsBlockTitle(title) {
		return u.Hostname()
	}
	return title
}

// DefaultFavicon returns the conventional /favicon.ico at the origin of u.
func DefaultFavicon(u *url.URL) string {
	if u == nil || u.Host == "" {
		return ""
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + u.Host + "/favicon.ico"
}
