package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/linkstash/models"
)

var articleHTML = `<!DOCTYPE html><html><head><title>Hello</title>
<meta property="og:title" content="Hello"></head><body><article><p>` +
	strings.Repeat("Plain server-rendered article text. ", 40) +
	`</p></article></body></html>`

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPEngine_Success(t *testing.T) {
	var gotUA string
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	})

	e := NewHTTPEngine(HTTPOptions{})
	res, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/post"})
	require.NoError(t, err)
	assert.Equal(t, models.MethodDirect, res.Method)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, srv.URL+"/post", res.FinalURL)
	assert.Contains(t, res.HTML, "server-rendered")
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestHTTPEngine_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := NewHTTPEngine(HTTPOptions{}).Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/old"})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/new", res.FinalURL)
}

func TestHTTPEngine_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		ctype  string
		body   string
		want   Reason
	}{
		{"forbidden", http.StatusForbidden, "text/html", articleHTML, ReasonAccessDenied},
		{"unauthorized", http.StatusUnauthorized, "text/html", articleHTML, ReasonAccessDenied},
		{"rate limited", http.StatusTooManyRequests, "text/html", articleHTML, ReasonAccessDenied},
		{"server error", http.StatusBadGateway, "text/html", articleHTML, ReasonServerError},
		{"json", http.StatusOK, "application/json", `{"a":1}`, ReasonNotHTML},
		{"pdf", http.StatusOK, "application/pdf", "%PDF-1.4", ReasonNotHTML},
		{
			"challenge page",
			http.StatusOK, "text/html",
			`<!DOCTYPE html><html><head><title>Just a moment...</title></head><body>Checking your browser</body></html>`,
			ReasonBlocked,
		},
		{"empty shell", http.StatusOK, "text/html", `<html><body><div id="root"></div></body></html>`, ReasonBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.ctype)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := NewHTTPEngine(HTTPOptions{}).Fetch(context.Background(), &FetchRequest{URL: srv.URL})
			require.Error(t, err)
			assert.Equal(t, tt.want, ReasonOf(err))

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, models.MethodDirect, fe.Method)
		})
	}
}

func TestHTTPEngine_DecodesCharset(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		body := strings.Replace(articleHTML, "Hello</title>", "Caf\xe9</title>", 1)
		_, _ = w.Write([]byte(body))
	})

	res, err := NewHTTPEngine(HTTPOptions{}).Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	assert.Contains(t, res.HTML, "Café</title>")
}

func TestHTTPEngine_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	e := NewHTTPEngine(HTTPOptions{Timeout: 50 * time.Millisecond})
	_, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, ReasonTimeout, ReasonOf(err))
}

func TestHTTPEngine_CallerCancel(t *testing.T) {
	release := make(chan struct{})
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewHTTPEngine(HTTPOptions{Timeout: time.Minute}).Fetch(ctx, &FetchRequest{URL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, ReasonCanceled, ReasonOf(err))
}

func TestIsHTMLContentType(t *testing.T) {
	assert.True(t, isHTMLContentType("text/html; charset=utf-8"))
	assert.True(t, isHTMLContentType("application/xhtml+xml"))
	assert.False(t, isHTMLContentType("image/png"))
	assert.False(t, isHTMLContentType(""))
}
