package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html/charset"

	"github.com/use-agent/linkstash/detector"
	"github.com/use-agent/linkstash/models"
)

const (
	// DefaultUserAgent is sent by the direct engine unless overridden.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// DefaultDirectTimeout bounds one direct fetch.
	DefaultDirectTimeout = 5 * time.Second

	maxBody = 10 << 20
)

// HTTPEngine is the direct fetch strategy: one plain GET with browser-like
// headers over a Chrome TLS fingerprint.
type HTTPEngine struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection, so the
	// server must never be offered it.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// HTTPOptions configures an HTTPEngine. Zero values select the defaults.
type HTTPOptions struct {
	Timeout   time.Duration
	UserAgent string
}

// NewHTTPEngine creates an HTTPEngine with a Chrome-like TLS fingerprint.
func NewHTTPEngine(opts HTTPOptions) *HTTPEngine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultDirectTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2:   false,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	return &HTTPEngine{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
	}
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, timeoutFor(req, e.timeout))
	defer cancel()

	httpReq, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fetchErr(models.MethodDirect, ReasonNetwork, fmt.Errorf("http_engine: build request: %w", err))
	}
	httpReq.Header.Set("User-Agent", e.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "identity")
	httpReq.Header.Set("Cache-Control", "no-cache")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fetchErr(models.MethodDirect, transportReason(ctx, err), fmt.Errorf("http_engine: do request: %w", err))
	}
	defer resp.Body.Close()

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized, code == http.StatusForbidden, code == http.StatusTooManyRequests:
		return nil, fetchErr(models.MethodDirect, ReasonAccessDenied, fmt.Errorf("http_engine: status %d", code))
	case code >= 500:
		return nil, fetchErr(models.MethodDirect, ReasonServerError, fmt.Errorf("http_engine: status %d", code))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fetchErr(models.MethodDirect, transportReason(ctx, err), fmt.Errorf("http_engine: read body: %w", err))
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	if !isHTMLContentType(ct) {
		return nil, fetchErr(models.MethodDirect, ReasonNotHTML, fmt.Errorf("http_engine: content-type %q", ct))
	}

	html := decodeBody(body, ct)
	if detector.IsBlocked(html) {
		return nil, fetchErr(models.MethodDirect, ReasonBlocked, fmt.Errorf("http_engine: status %d looks like a challenge or shell page", resp.StatusCode))
	}

	return &FetchResult{
		HTML:       html,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Method:     models.MethodDirect,
	}, nil
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt = strings.ToLower(ct)
	}
	return strings.Contains(mt, "text/html") || strings.Contains(mt, "application/xhtml+xml")
}

// decodeBody converts body to UTF-8 using the declared or sniffed charset.
func decodeBody(body []byte, contentType string) string {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
