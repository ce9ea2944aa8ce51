package classifier

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/linkstash/models"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestClassify_URLOnly(t *testing.T) {
	tests := []struct {
		url  string
		want models.ContentType
	}{
		{"https://example.com/files/report.PDF", models.ContentPDF},
		{"https://example.com/a/b/photo.jpeg?w=200", models.ContentImage},
		{"https://www.youtube.com/watch?v=abc", models.ContentVideo},
		{"https://youtu.be/abc", models.ContentVideo},
		{"https://www.imdb.com/title/tt0111161/", models.ContentVideo},
		{"https://www.imdb.com/name/nm0000151/", models.ContentWebsite},
		{"https://x.com/golang/status/1", models.ContentSocial},
		{"https://mobile.twitter.com/golang", models.ContentSocial},
		{"https://www.linkedin.com/in/someone", models.ContentSocial},
		{"https://github.com/golang/go", models.ContentCode},
		{"https://gist.github.com/someone/abc", models.ContentCode},
		{"https://www.amazon.co.uk/gp/thing", models.ContentProduct},
		{"https://shop.example.com/product/blue-mug", models.ContentProduct},
		{"https://www.amazon.com/dp/B000123", models.ContentProduct},
		{"https://example.com/blog/hello-world", models.ContentArticle},
		{"https://someone.substack.com/p/hello", models.ContentProduct},
		{"https://someone.substack.com/about", models.ContentArticle},
		{"https://example.com/", models.ContentWebsite},
		{"https://www.netflix.com/browse", models.ContentWebsite},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(mustParse(t, tt.url), nil))
		})
	}
}

func TestClassify_PageSignals(t *testing.T) {
	u := mustParse(t, "https://example.com/watch/123")

	assert.Equal(t, models.ContentVideo, Classify(u, &Signals{OGType: "video.other"}))
	assert.Equal(t, models.ContentVideo, Classify(u, &Signals{HasVideoMeta: true}))
	assert.Equal(t, models.ContentProduct, Classify(u, &Signals{OGType: "product"}))
	assert.Equal(t, models.ContentProduct, Classify(u, &Signals{HasDeclaredPrice: true}))
	assert.Equal(t, models.ContentArticle, Classify(u, &Signals{OGType: "article"}))
	assert.Equal(t, models.ContentWebsite, Classify(u, &Signals{OGType: "website"}))
}

func TestClassify_RuleOrder(t *testing.T) {
	// Social host wins over an article og:type.
	u := mustParse(t, "https://www.linkedin.com/pulse/some-post")
	assert.Equal(t, models.ContentSocial, Classify(u, &Signals{OGType: "article"}))

	// PDF wins over everything.
	u = mustParse(t, "https://github.com/org/repo/raw/main/paper.pdf")
	assert.Equal(t, models.ContentPDF, Classify(u, &Signals{OGType: "video"}))
}

func TestClassify_Total(t *testing.T) {
	assert.Equal(t, models.ContentWebsite, Classify(nil, nil))
	assert.Equal(t, models.ContentWebsite, ClassifyString("%%%"))
	assert.Equal(t, models.ContentWebsite, ClassifyString("not a url"))
	for _, raw := range []string{"", "mailto:a@b.c", "https://example.com"} {
		assert.True(t, ClassifyString(raw).Valid())
	}
}

func TestHostSet_Contains(t *testing.T) {
	s := NewHostSet("x.com", "www.Medium.com", "")

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("x.com"))
	assert.True(t, s.Contains("www.x.com"))
	assert.True(t, s.Contains("MOBILE.X.COM."))
	assert.True(t, s.Contains("medium.com"))
	assert.False(t, s.Contains("netflix.com"))
	assert.False(t, s.Contains("box.com"))
	assert.False(t, s.Contains(""))
}

func TestHosts_RequiresRendering(t *testing.T) {
	var zero Hosts
	assert.True(t, zero.RequiresRendering("www.instagram.com"))
	assert.False(t, zero.RequiresRendering("example.com"))

	h := NewHosts("spa.example.com")
	assert.True(t, h.RequiresRendering("spa.example.com"))
	assert.True(t, h.RequiresRendering("reddit.com"))
	assert.False(t, h.RequiresRendering("example.com"))

	// The built-in set is never widened by NewHosts.
	assert.False(t, RequiresRendering("spa.example.com"))
}

func TestIsDirectMedia(t *testing.T) {
	assert.True(t, IsDirectMedia(mustParse(t, "https://example.com/a.pdf")))
	assert.True(t, IsDirectMedia(mustParse(t, "https://example.com/a.webp")))
	assert.False(t, IsDirectMedia(mustParse(t, "https://example.com/a.svg")))
	assert.False(t, IsDirectMedia(mustParse(t, "https://example.com/pdf")))
}
