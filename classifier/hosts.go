package classifier

import "strings"

// HostSet is an immutable set of registrable hostnames. Lookups match the
// host itself and any subdomain of it, so "x.com" covers "mobile.x.com" but
// never "netflix.com".
type HostSet struct {
	hosts map[string]struct{}
}

// NewHostSet builds a HostSet. Entries are lowercased and stripped of a
// leading "www."; empty entries are ignored.
func NewHostSet(hosts ...string) HostSet {
	m := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		h = normalizeHost(h)
		if h != "" {
			m[h] = struct{}{}
		}
	}
	return HostSet{hosts: m}
}

// With returns a new set holding s plus extra. s is not modified.
func (s HostSet) With(extra ...string) HostSet {
	all := make([]string, 0, len(s.hosts)+len(extra))
	for h := range s.hosts {
		all = append(all, h)
	}
	return NewHostSet(append(all, extra...)...)
}

// Contains reports whether host or one of its parent domains is in the set.
func (s HostSet) Contains(host string) bool {
	host = normalizeHost(host)
	for host != "" {
		if _, ok := s.hosts[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
	}
	return false
}

// Len returns the number of entries.
func (s HostSet) Len() int { return len(s.hosts) }

func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimSuffix(h, ".")
	return strings.TrimPrefix(h, "www.")
}

// hasLabelPrefix reports whether any label-aligned suffix of host starts
// with prefix + ".", e.g. "amazon" matches "www.amazon.co.uk".
func hasLabelPrefix(host, prefix string) bool {
	host = normalizeHost(host)
	for host != "" {
		if strings.HasPrefix(host, prefix+".") {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
	}
	return false
}

// jsRequiredHosts always serve an empty shell to plain HTTP clients.
var jsRequiredHosts = NewHostSet(
	"twitter.com", "x.com",
	"instagram.com",
	"facebook.com", "fb.com",
	"linkedin.com",
	"tiktok.com",
	"reddit.com",
	"medium.com",
	"threads.net",
)

var (
	videoHosts = NewHostSet(
		"youtube.com", "youtu.be", "vimeo.com", "tiktok.com",
		"dailymotion.com", "twitch.tv",
	)
	imdbHosts   = NewHostSet("imdb.com")
	socialHosts = NewHostSet(
		"twitter.com", "x.com", "instagram.com", "facebook.com", "fb.com",
		"linkedin.com", "reddit.com", "threads.net", "pinterest.com", "bsky.app",
	)
	codeHosts = NewHostSet(
		"github.com", "gitlab.com", "bitbucket.org", "codepen.io",
		"codesandbox.io", "gist.github.com",
	)
	marketplaceHosts = NewHostSet(
		"flipkart.com", "etsy.com", "aliexpress.com", "walmart.com",
	)
	articleHosts = NewHostSet(
		"medium.com", "substack.com", "dev.to", "hashnode.dev",
	)
)

// marketplacePrefixes match regional storefronts such as amazon.de or ebay.co.uk.
var marketplacePrefixes = []string{"amazon", "ebay"}

// DefaultJSHosts returns the built-in set of hosts that need rendering.
func DefaultJSHosts() HostSet { return jsRequiredHosts }
