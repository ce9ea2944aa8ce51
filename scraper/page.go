package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/use-agent/linkstash/engine"
	"github.com/use-agent/linkstash/models"
)

// Render navigates a pooled tab to targetURL, waits for the DOM to settle
// and returns the serialized document.
//
// Stealth and request blocking are installed when the tab is opened, so
// they already cover this navigation. The tab is reset to about:blank and
// returned to the pool on every path; tabs that fail repeatedly or have
// served too long are closed instead.
func (b *Browser) Render(ctx context.Context, targetURL string) (*engine.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, renderErr(ctx, err, "render aborted before start")
	}

	b.active.Add(1)
	defer b.active.Add(-1)

	t, err := b.pool.Get(b.openTab)
	if err != nil {
		b.pool.Put(nil)
		return nil, &engine.FetchError{Method: models.MethodRendering, Reason: engine.ReasonTransient, Err: err}
	}

	var ok bool
	defer func() { b.release(t, ok) }()

	result, err := b.render(ctx, t.page, targetURL)
	if err != nil {
		return nil, err
	}
	ok = true
	return result, nil
}

// release resets the tab and returns it to the pool, or retires it.
func (b *Browser) release(t *tab, ok bool) {
	if ok {
		t.recordSuccess()
	} else {
		t.recordFailure()
	}
	if t.shouldRetire(time.Now()) {
		slog.Debug("retiring tab", "tab", t.id, "errScore", t.errScore, "uses", t.uses)
		t.close()
		b.pool.Put(nil)
		return
	}
	// The original page reference carries no request context, so this works
	// even after the request deadline passed.
	if err := t.page.Navigate("about:blank"); err != nil {
		slog.Warn("cleanup: failed to navigate to about:blank", "tab", t.id, "error", err)
		t.close()
		b.pool.Put(nil)
		return
	}
	b.pool.Put(t)
}

func (b *Browser) render(ctx context.Context, page *rod.Page, targetURL string) (*engine.FetchResult, error) {
	// Arriving from a search result page gets past some soft walls.
	if u, err := url.Parse(targetURL); err == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			}),
		}.Call(page)
	}

	p := page.Context(ctx)
	if err := p.Navigate(targetURL); err != nil {
		return nil, renderErr(ctx, err, "navigation failed")
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		if ctx.Err() != nil {
			return nil, renderErr(ctx, err, "wait for DOM")
		}
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "url", targetURL, "error", err)
	}

	// Event listeners for the response status conflict with request
	// interception, so the status comes from the navigation timing entry.
	var status int
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		status = res.Value.Int()
	}
	if reason, bad := statusReason(status); bad {
		return nil, &engine.FetchError{
			Method: models.MethodRendering,
			Reason: reason,
			Err:    fmt.Errorf("scraper: status %d for %s", status, targetURL),
		}
	}

	if b.opts.RemoveOverlays {
		removeOverlays(p)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, renderErr(ctx, err, "read page HTML")
	}
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" || finalURL == "about:blank" {
		finalURL = targetURL
	}
	if status == 0 {
		status = http.StatusOK
	}

	return &engine.FetchResult{
		HTML:       html,
		FinalURL:   finalURL,
		StatusCode: status,
	}, nil
}

// statusReason maps a navigation status to a failure reason. Zero means the
// status was unavailable and is treated as success.
func statusReason(status int) (engine.Reason, bool) {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return engine.ReasonAccessDenied, true
	case status >= 500:
		return engine.ReasonServerError, true
	}
	return "", false
}

// renderErr tags a browser error with the reason the dispatcher needs.
func renderErr(ctx context.Context, err error, msg string) *engine.FetchError {
	reason := engine.ReasonNetwork
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		reason = engine.ReasonCanceled
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		reason = engine.ReasonTimeout
	}
	return &engine.FetchError{
		Method: models.MethodRendering,
		Reason: reason,
		Err:    fmt.Errorf("scraper: %s: %w", msg, err),
	}
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// removeOverlays deletes fixed or sticky elements with a high z-index and
// common consent/login overlay containers, then re-enables page scrolling.
func removeOverlays(p *rod.Page) {
	const js = `() => {
		for (const el of document.querySelectorAll('*')) {
			const style = window.getComputedStyle(el);
			if (style.position === 'fixed' || style.position === 'sticky') {
				const z = parseInt(style.zIndex, 10);
				if (z >= 900 || style.zIndex === 'auto') el.remove();
			}
		}
		const selectors = [
			'[class*="cookie"]', '[class*="consent"]', '[class*="overlay"]',
			'[id*="cookie"]', '[id*="consent"]', '[id*="overlay"]',
			'[class*="popup"]', '[id*="popup"]',
			'[class*="gdpr"]', '[id*="gdpr"]',
			'[role="dialog"]',
		];
		for (const sel of selectors) {
			document.querySelectorAll(sel).forEach(el => {
				const pos = window.getComputedStyle(el).position;
				if (pos === 'fixed' || pos === 'sticky' || pos === 'absolute') el.remove();
			});
		}
		document.documentElement.style.overflow = '';
		if (document.body) document.body.style.overflow = '';
	}`
	_, _ = p.Eval(js)
}
