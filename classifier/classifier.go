// Package classifier maps a URL, and optionally the signals of its fetched
// page, to a coarse content type.
package classifier

import (
	"net/url"
	"path"
	"strings"

	"github.com/use-agent/linkstash/models"
)

// Signals is the page evidence the classifier can use after a fetch.
// A nil *Signals means "URL only".
type Signals struct {
	// OGType is the lowercased og:type value.
	OGType string

	// HasVideoMeta is true when the page declares og:video or og:video:*.
	HasVideoMeta bool

	// HasDeclaredPrice is true when a price meta tag or a JSON-LD
	// Product offer price is present.
	HasDeclaredPrice bool
}

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".avif": {},
}

var (
	productSegments = []string{"/product/", "/products/", "/p/", "/dp/", "/item/"}
	articleSegments = []string{"/blog/", "/article/", "/articles/", "/post/", "/posts/", "/news/"}
)

// Classify applies the ordered rules and returns the first match. It never
// fails; an unparseable or empty URL classifies as website.
func Classify(u *url.URL, sig *Signals) models.ContentType {
	if u == nil {
		u = &url.URL{}
	}
	if sig == nil {
		sig = &Signals{}
	}
	host := u.Hostname()
	p := strings.ToLower(u.Path)

	switch {
	case IsPDF(u):
		return models.ContentPDF
	case IsImage(u):
		return models.ContentImage
	case isVideo(host, p, sig):
		return models.ContentVideo
	case socialHosts.Contains(host):
		return models.ContentSocial
	case codeHosts.Contains(host):
		return models.ContentCode
	case isProduct(host, p, sig):
		return models.ContentProduct
	case isArticle(host, p, sig):
		return models.ContentArticle
	default:
		return models.ContentWebsite
	}
}

// ClassifyString parses raw and classifies it. Parse failures yield website.
func ClassifyString(raw string) models.ContentType {
	u, err := url.Parse(raw)
	if err != nil {
		return models.ContentWebsite
	}
	return Classify(u, nil)
}

// IsPDF reports whether the URL path ends in .pdf.
func IsPDF(u *url.URL) bool {
	return strings.EqualFold(path.Ext(u.Path), ".pdf")
}

// IsImage reports whether the URL path ends in a raster image extension.
func IsImage(u *url.URL) bool {
	_, ok := imageExtensions[strings.ToLower(path.Ext(u.Path))]
	return ok
}

// IsDirectMedia reports whether the URL points straight at a PDF or image,
// which the pipeline records without fetching.
func IsDirectMedia(u *url.URL) bool {
	return IsPDF(u) || IsImage(u)
}

func isVideo(host, p string, sig *Signals) bool {
	if videoHosts.Contains(host) {
		return true
	}
	if imdbHosts.Contains(host) && strings.HasPrefix(p, "/title/") {
		return true
	}
	return strings.Contains(sig.OGType, "video") || sig.HasVideoMeta
}

func isProduct(host, p string, sig *Signals) bool {
	for _, seg := range productSegments {
		if strings.Contains(p, seg) {
			return true
		}
	}
	if marketplaceHosts.Contains(host) {
		return true
	}
	for _, prefix := range marketplacePrefixes {
		if hasLabelPrefix(host, prefix) {
			return true
		}
	}
	return strings.Contains(sig.OGType, "product") || sig.HasDeclaredPrice
}

func isArticle(host, p string, sig *Signals) bool {
	for _, seg := range articleSegments {
		if strings.Contains(p, seg) {
			return true
		}
	}
	if articleHosts.Contains(host) {
		return true
	}
	return sig.OGType == "article" || strings.HasPrefix(sig.OGType, "article:")
}

// Hosts decides whether a hostname must skip Direct Fetch. The zero value
// uses the built-in set.
type Hosts struct {
	set HostSet
}

// NewHosts returns a Hosts holding the built-in JS-required hosts plus extra.
func NewHosts(extra ...string) Hosts {
	return Hosts{set: jsRequiredHosts.With(extra...)}
}

// RequiresRendering reports whether host is known to need JS rendering.
func (h Hosts) RequiresRendering(host string) bool {
	if h.set.hosts == nil {
		return jsRequiredHosts.Contains(host)
	}
	return h.set.Contains(host)
}

// RequiresRendering checks host against the built-in set only.
func RequiresRendering(host string) bool {
	return jsRequiredHosts.Contains(host)
}
