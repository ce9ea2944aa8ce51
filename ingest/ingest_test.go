package ingest

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/linkstash/classifier"
	"github.com/use-agent/linkstash/detector"
	"github.com/use-agent/linkstash/engine"
	"github.com/use-agent/linkstash/models"
)

type stubEngine struct {
	method models.FetchMethod
	html   string
	meta   *engine.ExternalMetadata
	reason engine.Reason
	block  bool // wait for ctx
	final  string
	calls  atomic.Int32
}

func (s *stubEngine) Name() string { return string(s.method) }

func (s *stubEngine) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return nil, &engine.FetchError{Method: s.method, Reason: engine.ReasonCanceled, Err: ctx.Err()}
	}
	if s.reason != "" {
		return nil, &engine.FetchError{Method: s.method, Reason: s.reason, Err: errors.New("stub failure")}
	}
	final := req.URL
	if s.final != "" {
		final = s.final
	}
	return &engine.FetchResult{HTML: s.html, FinalURL: final, Method: s.method, Metadata: s.meta}, nil
}

func failWith(m models.FetchMethod, r engine.Reason) *stubEngine {
	return &stubEngine{method: m, reason: r}
}

func pipeline(direct, rendering, metadata *stubEngine) *Pipeline {
	var e engine.Engines
	if direct != nil {
		e.Direct = direct
	}
	if rendering != nil {
		e.Rendering = rendering
	}
	if metadata != nil {
		e.Metadata = metadata
	}
	return New(engine.NewDispatcher(e, classifier.Hosts{}, nil), Options{})
}

var goodPage = `<!DOCTYPE html><html><head>
<title>Bar</title>
<meta property="og:title" content="Foo">
<meta property="og:description" content="A page about foo and its many uses in practice.">
<meta property="og:image" content="/img/hero.jpg">
</head><body><main><p>` + strings.Repeat("Foo is useful. ", 40) + `</p></main></body></html>`

func TestIngest_RedirectKeepsInputAsCanonical(t *testing.T) {
	direct := &stubEngine{method: models.MethodDirect, html: goodPage, final: "https://www.example.com/landing/foo"}
	rec, err := pipeline(direct, nil, nil).Ingest(context.Background(), "https://example.com/foo")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/foo", rec.URL)
	assert.Equal(t, "https://example.com/foo", rec.Meta.CanonicalURL)
	assert.Equal(t, "https://www.example.com/img/hero.jpg", rec.ImageURL())
}

func TestIngest_InvalidURL(t *testing.T) {
	direct := &stubEngine{method: models.MethodDirect, html: goodPage}
	p := pipeline(direct, nil, nil)

	for _, raw := range []string{"", "not a url", "ftp://example.com/a", "https://", "/relative/path", "mailto:a@b.c", "http://[::1"} {
		t.Run(raw, func(t *testing.T) {
			rec, err := p.Ingest(context.Background(), raw)
			require.Error(t, err)
			assert.Nil(t, rec)
			assert.True(t, models.IsInvalidInput(err))
			assert.ErrorIs(t, err, models.ErrInvalidURL)
		})
	}
	assert.EqualValues(t, 0, direct.calls.Load())
}

func TestIngest_DirectMedia(t *testing.T) {
	direct := &stubEngine{method: models.MethodDirect, html: goodPage}
	p := pipeline(direct, nil, nil)

	rec, err := p.Ingest(context.Background(), "https://example.com/files/annual-report_2024-v2.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.ContentPDF, rec.ContentType)
	assert.Equal(t, models.MethodMedia, rec.FetchMethod)
	assert.Nil(t, rec.Image)
	assert.Equal(t, "Annual Report 2024 V2", rec.Title)

	rec, err = p.Ingest(context.Background(), "https://cdn.example.com/photos/sunset.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.ContentImage, rec.ContentType)
	assert.Equal(t, "https://cdn.example.com/photos/sunset.jpg", rec.ImageURL())

	assert.EqualValues(t, 0, direct.calls.Load())
}

func TestIngest_DirectSuccess(t *testing.T) {
	p := pipeline(&stubEngine{method: models.MethodDirect, html: goodPage}, nil, nil)

	rec, err := p.Ingest(context.Background(), "https://example.com/foo")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/foo", rec.URL)
	assert.Equal(t, "Foo", rec.Title)
	assert.Equal(t, "https://example.com/img/hero.jpg", rec.ImageURL())
	assert.Equal(t, models.MethodDirect, rec.FetchMethod)
	assert.True(t, rec.ContentType.Valid())
}

func TestIngest_DeniedDirectUsesRendering(t *testing.T) {
	direct := failWith(models.MethodDirect, engine.ReasonAccessDenied)
	rendering := &stubEngine{method: models.MethodRendering, html: goodPage}
	metadata := &stubEngine{method: models.MethodMetadata, meta: &engine.ExternalMetadata{Title: "M"}}
	p := pipeline(direct, rendering, metadata)

	rec, err := p.Ingest(context.Background(), "https://example.com/foo")
	require.NoError(t, err)
	assert.Equal(t, models.MethodRendering, rec.FetchMethod)
	assert.Equal(t, "Foo", rec.Title)
	assert.EqualValues(t, 0, metadata.calls.Load())
}

func TestIngest_ErrorPageEscalates(t *testing.T) {
	notFound := `<!DOCTYPE html><html><head><title>404 Not Found</title></head><body><h1>Not Found</h1><p>` +
		strings.Repeat("The requested resource could not be located. ", 5) + `</p></body></html>`
	direct := &stubEngine{method: models.MethodDirect, html: notFound}
	rendering := &stubEngine{method: models.MethodRendering, html: goodPage}
	p := pipeline(direct, rendering, nil)

	rec, err := p.Ingest(context.Background(), "https://example.com/foo")
	require.NoError(t, err)
	assert.Equal(t, models.MethodRendering, rec.FetchMethod)
	assert.EqualValues(t, 1, direct.calls.Load())
}

func TestIngest_MetadataFallback(t *testing.T) {
	metadata := &stubEngine{method: models.MethodMetadata, meta: &engine.ExternalMetadata{
		Title:       "Just a moment...",
		Description: "Photo by someone",
		Image:       "https://scontent.cdninstagram.com/v/a.jpg",
		Screenshot:  "https://iad.microlink.io/shot.png",
		Logo:        "https://static.cdninstagram.com/logo.png",
		Author:      "someone",
		Publisher:   "Instagram",
	}}
	p := pipeline(
		failWith(models.MethodDirect, engine.ReasonBlocked),
		failWith(models.MethodRendering, engine.ReasonQuotaExceeded),
		metadata,
	)

	rec, err := p.Ingest(context.Background(), "https://www.instagram.com/p/my-trip-photo/")
	require.NoError(t, err)
	assert.Equal(t, models.MethodMetadata, rec.FetchMethod)
	assert.Equal(t, "My Trip Photo", rec.Title)
	assert.Equal(t, "Photo by someone", rec.Description)
	assert.Equal(t, "https://iad.microlink.io/shot.png", rec.ImageURL())
	assert.Equal(t, "https://static.cdninstagram.com/logo.png", rec.Meta.Favicon)
	assert.Equal(t, "Instagram", rec.Meta.SiteName)
	assert.Equal(t, models.ContentSocial, rec.ContentType)
	assert.Empty(t, rec.Content)
	assert.Empty(t, rec.TextContent)
}

func TestIngest_MetadataImageWhenNoScreenshot(t *testing.T) {
	metadata := &stubEngine{method: models.MethodMetadata, meta: &engine.ExternalMetadata{
		Title: "Post",
		Image: "https://example.com/cover.jpg",
	}}
	p := pipeline(nil, nil, metadata)

	rec, err := p.Ingest(context.Background(), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, "Post", rec.Title)
	assert.Equal(t, "https://example.com/cover.jpg", rec.ImageURL())
	assert.Equal(t, "https://example.com/favicon.ico", rec.Meta.Favicon)
}

func TestIngest_AllFailReturnsMinimalRecord(t *testing.T) {
	p := pipeline(
		failWith(models.MethodDirect, engine.ReasonNetwork),
		failWith(models.MethodRendering, engine.ReasonNotConfigured),
		failWith(models.MethodMetadata, engine.ReasonEmpty),
	)

	rec, err := p.Ingest(context.Background(), "https://github.com/")
	require.NoError(t, err)
	assert.Equal(t, models.MethodFallback, rec.FetchMethod)
	assert.Equal(t, "github.com", rec.Title)
	assert.Equal(t, "https://github.com/favicon.ico", rec.Meta.Favicon)
	assert.Equal(t, models.ContentCode, rec.ContentType)
	assert.Nil(t, rec.Image)
	assert.Empty(t, rec.Content)
}

func TestIngest_NoEnginesConfigured(t *testing.T) {
	rec, err := pipeline(nil, nil, nil).Ingest(context.Background(), "https://example.com/some-page")
	require.NoError(t, err)
	assert.Equal(t, models.MethodFallback, rec.FetchMethod)
	assert.Equal(t, "Some Page", rec.Title)
}

func TestIngest_ErrorLikePathNeverBecomesTitle(t *testing.T) {
	rec, err := pipeline(nil, nil, nil).Ingest(context.Background(), "https://example.com/not-found")
	require.NoError(t, err)
	assert.Equal(t, models.MethodFallback, rec.FetchMethod)
	assert.Equal(t, "example.com", rec.Title)
	assert.False(t, detector.IsBlockTitle(rec.Title))
}

func TestIngest_CallerCancel(t *testing.T) {
	rendering := &stubEngine{method: models.MethodRendering, html: goodPage}
	p := pipeline(&stubEngine{method: models.MethodDirect, block: true}, rendering, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	rec, err := p.Ingest(ctx, "https://example.com/slow")
	require.Error(t, err)
	assert.Nil(t, rec)
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeCanceled, se.Code)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, rendering.calls.Load())
}

func TestIngest_PipelineTimeoutFallsBack(t *testing.T) {
	direct := &stubEngine{method: models.MethodDirect, block: true}
	p := New(engine.NewDispatcher(engine.Engines{Direct: direct}, classifier.Hosts{}, nil), Options{Timeout: 20 * time.Millisecond})

	rec, err := p.Ingest(context.Background(), "https://example.com/slow")
	require.NoError(t, err)
	assert.Equal(t, models.MethodFallback, rec.FetchMethod)
}

func TestIngest_Totality(t *testing.T) {
	p := pipeline(nil, nil, nil)
	for _, raw := range []string{
		"https://example.com",
		"http://EXAMPLE.com/a/b/c/",
		"https://x.com/user/status/123",
		"https://www.youtube.com/watch?v=abc",
		"https://shop.example.com/products/red-shoe?ref=1#top",
		"https://example.com/%E2%9C%93",
	} {
		rec, err := p.Ingest(context.Background(), raw)
		require.NoError(t, err, raw)
		assert.NotEmpty(t, rec.Title, raw)
		assert.True(t, rec.ContentType.Valid(), raw)
		assert.Equal(t, raw, rec.URL)
	}
}

func TestParseURL(t *testing.T) {
	u, err := ParseURL("  HTTPS://Example.com/a ")
	require.NoError(t, err)
	assert.Equal(t, "Example.com", u.Host)
}
