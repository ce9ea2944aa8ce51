package engine

import (
	"context"
	"time"

	"github.com/use-agent/linkstash/models"
)

// Engine is the interface every fetch strategy implements.
type Engine interface {
	// Name returns the engine identifier used in logs (e.g. "http", "render").
	Name() string

	// Fetch retrieves the page. Failures are always *FetchError values.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string

	// Timeout overrides the engine default when positive.
	Timeout time.Duration
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	FinalURL   string
	StatusCode int
	Method     models.FetchMethod

	// Metadata is set only by the metadata engine, which returns no HTML.
	Metadata *ExternalMetadata
}

// ExternalMetadata is what a metadata extraction service knows about a URL.
type ExternalMetadata struct {
	Title       string
	Description string
	Image       string
	Screenshot  string
	Logo        string
	Author      string
	Publisher   string
}

// Empty reports whether m carries nothing a record could use.
func (m *ExternalMetadata) Empty() bool {
	return m == nil || (m.Title == "" && m.Description == "" && m.Image == "" && m.Screenshot == "")
}

// timeoutFor returns the request timeout, or def when the request sets none.
func timeoutFor(req *FetchRequest, def time.Duration) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return def
}
