package scraper

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to CDP resource types.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

type resourceTypeSet map[proto.NetworkResourceType]struct{}

// newResourceTypeSet builds the blocked set from config names. Unknown
// names are ignored.
func newResourceTypeSet(names []string) resourceTypeSet {
	set := make(resourceTypeSet, len(names))
	for _, name := range names {
		if rt, ok := resourceTypes[name]; ok {
			set[rt] = struct{}{}
		}
	}
	return set
}

func (s resourceTypeSet) has(rt proto.NetworkResourceType) bool {
	_, ok := s[rt]
	return ok
}

// adDomains are ad and tracking hosts dropped when BlockAds is on. Social
// network first-party hosts (facebook.com, fbcdn.net) are deliberately
// absent: rendering their pages needs them.
var adDomains = map[string]struct{}{
	"doubleclick.net":        {},
	"googlesyndication.com":  {},
	"googleadservices.com":   {},
	"google-analytics.com":   {},
	"googletagmanager.com":   {},
	"googletagservices.com":  {},
	"connect.facebook.net":   {},
	"adnxs.com":              {},
	"adsrvr.org":             {},
	"amazon-adsystem.com":    {},
	"criteo.com":             {},
	"criteo.net":             {},
	"outbrain.com":           {},
	"taboola.com":            {},
	"moatads.com":            {},
	"pubmatic.com":           {},
	"rubiconproject.com":     {},
	"scorecardresearch.com":  {},
	"quantserve.com":         {},
	"hotjar.com":             {},
	"mixpanel.com":           {},
	"segment.io":             {},
	"segment.com":            {},
	"analytics.twitter.com":  {},
	"ads-twitter.com":        {},
	"static.ads-twitter.com": {},
	"chartbeat.com":          {},
	"chartbeat.net":          {},
	"optimizely.com":         {},
	"media.net":              {},
	"openx.net":              {},
	"casalemedia.com":        {},
	"demdex.net":             {},
	"krxd.net":               {},
	"bluekai.com":            {},
	"mathtag.com":            {},
	"serving-sys.com":        {},
	"rlcdn.com":              {},
	"sharethis.com":          {},
	"addthis.com":            {},
	"consensu.org":           {},
}

// isAdDomain checks host and each of its parent domains against adDomains.
func isAdDomain(host string) bool {
	host = strings.ToLower(host)
	for {
		if _, ok := adDomains[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
	}
}

// setupHijack installs a request interceptor on page that fails blocked
// resource types and, optionally, ad hosts. It returns nil when there is
// nothing to block; otherwise the caller stops the router with the page.
func setupHijack(page *rod.Page, blocked resourceTypeSet, blockAds bool) *rod.HijackRouter {
	if len(blocked) == 0 && !blockAds {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if blocked.has(ctx.Request.Type()) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		if blockAds {
			if u, err := url.Parse(ctx.Request.URL().String()); err == nil && isAdDomain(u.Hostname()) {
				ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop.
	go router.Run()
	return router
}
