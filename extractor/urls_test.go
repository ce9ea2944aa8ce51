package extractor

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://example.com/blog/post/")

	tests := []struct {
		ref  string
		want string
	}{
		{"", ""},
		{"  ", ""},
		{"//cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{"/img/a.png", "https://example.com/img/a.png"},
		{"a.png", "https://example.com/blog/post/a.png"},
		{"http://other.com/x", "http://other.com/x"},
		{"javascript:void(0)", ""},
		{"mailto:a@example.com", ""},
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveURL(tt.ref, base), "ref=%q", tt.ref)
	}
}

func TestIsValidImageURL(t *testing.T) {
	bigPNG := "data:image/png;base64," + strings.Repeat("A", 6000)

	valid := []string{
		"https://example.com/a.jpg",
		"https://example.com/render?id=5",
		bigPNG,
	}
	invalid := []string{
		"",
		"ftp://example.com/a.jpg",
		"https://example.com/logo.svg",
		"https://example.com/logo.SVG?v=2",
		"https://example.com/images/placeholder.png",
		"https://example.com/default-avatar.png",
		"https://example.com/noimage.jpg",
		"https://example.com/1x1.gif",
		"https://example.com/spacer.gif",
		"https://example.com/t/pixel?id=1",
		"data:image/png;base64,AAAA",
		"data:image/gif;base64," + strings.Repeat("A", 6000),
		"data:image/svg+xml;base64," + strings.Repeat("A", 6000),
	}

	for _, u := range valid {
		assert.True(t, IsValidImageURL(u), truncateRunes(u, 60))
	}
	for _, u := range invalid {
		assert.False(t, IsValidImageURL(u), truncateRunes(u, 60))
	}
}

func TestIsValidDOMImage(t *testing.T) {
	assert.True(t, isValidDOMImage("https://example.com/a.webp"))
	assert.True(t, isValidDOMImage("https://images.unsplash.com/photo-123?w=800"))
	assert.False(t, isValidDOMImage("https://example.com/render?id=5"))
	assert.False(t, isValidDOMImage("https://example.com/beacon.php"))
}

func TestHumanizeURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/blog/my-first_post-123", "My First Post"},
		{"https://example.com/docs/getting-started/", "Getting Started"},
		{"https://example.com/files/annual-report.pdf", "Annual Report"},
		{"https://example.com/a/hello%20world", "Hello World"},
		{"https://example.com/", "example.com"},
		{"https://example.com", "example.com"},
		{"https://example.com/keep-iPhone-case", "Keep IPhone Case"},
		{"https://example.com/not-found", "example.com"},
		{"https://example.com/errors/access_denied.html", "example.com"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, HumanizeURL(u), tt.raw)
	}
}

func TestDefaultFavicon(t *testing.T) {
	u, _ := url.Parse("http://example.com:8080/a/b?c=d")
	assert.Equal(t, "http://example.com:8080/favicon.ico", DefaultFavicon(u))
	assert.Empty(t, DefaultFavicon(nil))
}
