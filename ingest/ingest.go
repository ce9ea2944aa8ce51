// Package ingest turns a URL into a ScrapedRecord. It classifies the URL,
// drives the fetch escalation and extracts the record from whichever
// strategy succeeded, falling back to a minimal record when all fail.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/linkstash/classifier"
	"github.com/use-agent/linkstash/detector"
	"github.com/use-agent/linkstash/engine"
	"github.com/use-agent/linkstash/extractor"
	"github.com/use-agent/linkstash/models"
)

// Pipeline is the ingestion orchestrator. It holds no per-call state and is
// safe for concurrent use.
type Pipeline struct {
	dispatcher *engine.Dispatcher
	timeout    time.Duration
}

// Options configures a Pipeline.
type Options struct {
	// Timeout bounds one whole ingestion on top of the per-strategy
	// timeouts. Zero leaves only the per-strategy timeouts.
	Timeout time.Duration
}

// New creates a Pipeline over d.
func New(d *engine.Dispatcher, opts Options) *Pipeline {
	return &Pipeline{dispatcher: d, timeout: opts.Timeout}
}

// Ingest fetches rawURL and returns its record. The only errors are
// INVALID_INPUT for a URL that is not absolute http(s), returned before any
// network call, and REQUEST_CANCELED when ctx is done. Every other failure
// degrades to a less complete record.
func (p *Pipeline) Ingest(ctx context.Context, rawURL string) (*models.ScrapedRecord, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, canceled(err)
	}

	if classifier.IsDirectMedia(u) {
		rec := mediaRecord(rawURL, u)
		slog.Info("ingested direct media", "url", rawURL, "content_type", rec.ContentType)
		return &rec, nil
	}

	parent := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	expected := classifier.Classify(u, nil)
	start := time.Now()

	var rec models.ScrapedRecord
	accept := func(r *engine.FetchResult) error {
		if r.Metadata != nil {
			rec = metadataRecord(rawURL, u, expected, r.Metadata)
			return nil
		}
		candidate, err := htmlRecord(rawURL, r, expected)
		if err != nil {
			return err
		}
		rec = candidate
		return nil
	}

	out, err := p.dispatcher.Dispatch(ctx, &engine.FetchRequest{URL: rawURL}, accept)
	switch {
	case err == nil:
		slog.Info("ingested",
			"url", rawURL, "method", rec.FetchMethod, "content_type", rec.ContentType,
			"attempts", len(out.Attempts), "duration", time.Since(start),
		)
		return &rec, nil
	case parent.Err() != nil:
		return nil, canceled(err)
	case errors.Is(err, context.DeadlineExceeded):
		// Only the pipeline's own deadline; the caller still gets a record.
		slog.Warn("ingestion deadline reached", "url", rawURL, "error", err)
	default:
		slog.Warn("all strategies failed", "url", rawURL, "error", err)
	}

	rec = fallbackRecord(rawURL, u, expected)
	return &rec, nil
}

// ParseURL accepts only absolute http(s) URLs with a host.
func ParseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, invalidURL(rawURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Hostname() == "" {
		return nil, invalidURL(rawURL, nil)
	}
	return u, nil
}

func invalidURL(rawURL string, cause error) error {
	err := fmt.Errorf("%w: %q", models.ErrInvalidURL, rawURL)
	if cause != nil {
		err = fmt.Errorf("%w: %w", err, cause)
	}
	return models.NewScrapeError(models.ErrCodeInvalidInput, "url must be an absolute http or https URL", err)
}

func canceled(err error) error {
	return models.NewScrapeError(models.ErrCodeCanceled, "request canceled", err)
}

// htmlRecord extracts a record from fetched HTML and rejects it when the
// page turns out to be an error page. Relative links resolve against the
// final URL after redirects; the record keeps the input URL.
func htmlRecord(rawURL string, r *engine.FetchResult, expected models.ContentType) (models.ScrapedRecord, error) {
	pageURL := rawURL
	if r.FinalURL != "" {
		if fu, err := url.Parse(r.FinalURL); err == nil && fu.Hostname() != "" &&
			(fu.Scheme == "http" || fu.Scheme == "https") {
			pageURL = r.FinalURL
		}
	}

	rec := extractor.ExtractRedirected(r.HTML, pageURL, rawURL, expected)
	if err := detector.ValidateResult(rec.Title, rec.Description); err != nil {
		return models.ScrapedRecord{}, err
	}
	// The extractor replaces a block title with the humanized URL. When the
	// page offered nothing better than that, the page is the error itself.
	if raw := detector.Title(r.HTML); detector.IsBlockTitle(raw) && rec.Description == "" {
		return models.ScrapedRecord{}, fmt.Errorf("%w: title %q", detector.ErrErrorPage, raw)
	}
	rec.URL = rawURL
	rec.FetchMethod = r.Method
	return rec, nil
}
