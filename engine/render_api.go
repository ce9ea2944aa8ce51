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

	"github.com/use-agent/linkstash/models"
)

// DefaultRenderAPIURL is the ScrapingAnt API base URL.
const DefaultRenderAPIURL = "https://api.scrapingant.com"

// RenderAPIClient is a RenderBackend backed by a ScrapingAnt-compatible
// rendering API.
type RenderAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRenderAPIClient creates a client. Pass a nil httpClient to use a
// default one; timeouts come from the request context.
func NewRenderAPIClient(baseURL, apiKey string, httpClient *http.Client) *RenderAPIClient {
	if baseURL == "" {
		baseURL = DefaultRenderAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &RenderAPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c *RenderAPIClient) Name() string { return "api" }

type renderAPIResponse struct {
	Content string `json:"content"`
	URL     string `json:"url,omitempty"`
}

// Render asks the service for the page source after JS execution.
func (c *RenderAPIClient) Render(ctx context.Context, targetURL string) (*FetchResult, error) {
	if c.apiKey == "" {
		return nil, fetchErr(models.MethodRendering, ReasonNotConfigured, errors.New("render_api: no api key"))
	}

	q := url.Values{}
	q.Set("url", targetURL)
	q.Set("x-api-key", c.apiKey)
	q.Set("browser", "true")
	q.Set("return_page_source", "true")
	endpoint := c.baseURL + "/v2/general?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fetchErr(models.MethodRendering, ReasonTransient, fmt.Errorf("render_api: build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fetchErr(models.MethodRendering, transportReason(ctx, err), fmt.Errorf("render_api: do request: %w", redactKey(err, c.apiKey)))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fetchErr(models.MethodRendering, transportReason(ctx, err), fmt.Errorf("render_api: read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fetchErr(models.MethodRendering, classifyServiceStatus(resp.StatusCode),
			fmt.Errorf("render_api: status %d: %s", resp.StatusCode, truncateBody(body)))
	}

	var out renderAPIResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fetchErr(models.MethodRendering, ReasonTransient, fmt.Errorf("render_api: decode response: %w", err))
	}
	if strings.TrimSpace(out.Content) == "" {
		return nil, fetchErr(models.MethodRendering, ReasonEmpty, errors.New("render_api: empty page source"))
	}

	return &FetchResult{
		HTML:       out.Content,
		FinalURL:   out.URL,
		StatusCode: http.StatusOK,
	}, nil
}

// classifyServiceStatus maps an external service's HTTP status to a reason.
func classifyServiceStatus(code int) Reason {
	switch code {
	case http.StatusUnauthorized:
		return ReasonInvalidCredentials
	case http.StatusForbidden, http.StatusLocked, http.StatusTooManyRequests, http.StatusPaymentRequired:
		return ReasonQuotaExceeded
	default:
		return ReasonTransient
	}
}

// redactKey keeps API keys that travel in the query string out of logs.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}

func truncateBody(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
