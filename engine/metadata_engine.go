package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/linkstash/models"
)

const (
	// DefaultMetadataURL is the Microlink API base URL.
	DefaultMetadataURL = "https://api.microlink.io"

	// DefaultMetadataTimeout bounds one metadata lookup. It is the longest of
	// the three because the service may capture a screenshot.
	DefaultMetadataTimeout = 15 * time.Second
)

// MetadataEngine is the last fetch strategy: it asks a Microlink-compatible
// service for the OpenGraph-like data of a page and returns no HTML.
type MetadataEngine struct {
	baseURL    string
	apiKey     string
	screenshot bool
	timeout    time.Duration
	httpClient *http.Client
}

// MetadataOptions configures a MetadataEngine. Zero values select the
// defaults; Screenshot defaults to off so pass true explicitly.
type MetadataOptions struct {
	BaseURL    string
	APIKey     string
	Screenshot bool
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewMetadataEngine creates a MetadataEngine.
func NewMetadataEngine(opts MetadataOptions) *MetadataEngine {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultMetadataURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultMetadataTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &MetadataEngine{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		screenshot: opts.Screenshot,
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
	}
}

func (e *MetadataEngine) Name() string { return "metadata" }

type microlinkAsset struct {
	URL string `json:"url"`
}

type microlinkResponse struct {
	Status string `json:"status"`
	Data   struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Author      string          `json:"author"`
		Publisher   string          `json:"publisher"`
		Image       *microlinkAsset `json:"image"`
		Screenshot  *microlinkAsset `json:"screenshot"`
		Logo        *microlinkAsset `json:"logo"`
	} `json:"data"`
}

func (a *microlinkAsset) url() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a.URL)
}

func (e *MetadataEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, timeoutFor(req, e.timeout))
	defer cancel()

	q := url.Values{}
	q.Set("url", req.URL)
	if e.screenshot {
		q.Set("screenshot", "true")
	}

	httpReq, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, e.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return nil, fetchErr(models.MethodMetadata, ReasonTransient, fmt.Errorf("metadata_engine: build request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("x-api-key", e.apiKey)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fetchErr(models.MethodMetadata, transportReason(ctx, err), fmt.Errorf("metadata_engine: do request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fetchErr(models.MethodMetadata, transportReason(ctx, err), fmt.Errorf("metadata_engine: read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fetchErr(models.MethodMetadata, classifyServiceStatus(resp.StatusCode),
			fmt.Errorf("metadata_engine: status %d: %s", resp.StatusCode, truncateBody(body)))
	}

	var out microlinkResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fetchErr(models.MethodMetadata, ReasonTransient, fmt.Errorf("metadata_engine: decode response: %w", err))
	}
	if out.Status != "success" {
		return nil, fetchErr(models.MethodMetadata, ReasonEmpty, fmt.Errorf("metadata_engine: status %q", out.Status))
	}

	meta := &ExternalMetadata{
		Title:       strings.TrimSpace(out.Data.Title),
		Description: strings.TrimSpace(out.Data.Description),
		Image:       out.Data.Image.url(),
		Screenshot:  out.Data.Screenshot.url(),
		Logo:        out.Data.Logo.url(),
		Author:      strings.TrimSpace(out.Data.Author),
		Publisher:   strings.TrimSpace(out.Data.Publisher),
	}
	if meta.Empty() {
		return nil, fetchErr(models.MethodMetadata, ReasonEmpty, errors.New("metadata_engine: no usable fields"))
	}

	return &FetchResult{
		FinalURL:   req.URL,
		StatusCode: http.StatusOK,
		Method:     models.MethodMetadata,
		Metadata:   meta,
	}, nil
}
