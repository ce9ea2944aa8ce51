// Package summarize is a lightweight client for an OpenAI-compatible chat
// completions API that writes a short summary, tags and a category for an
// ingested record.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/use-agent/linkstash/models"
)

const (
	// DefaultBaseURL is the OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is a small, inexpensive chat model.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds one summarization call.
	DefaultTimeout = 20 * time.Second

	// maxInputRunes is how much of the text content is sent.
	maxInputRunes = 600

	// minTextRunes is the text length at or below which no call is made and
	// the description stands in for the summary.
	minTextRunes = 50

	maxTags = 5
)

// Categories is the closed set of categories the model may answer with.
var Categories = []string{"article", "shop", "video", "tool", "recipe", "other"}

// Client calls the summarization service. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &Client{
		httpClient: opts.HTTPClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		model:      opts.Model,
		timeout:    opts.Timeout,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c != nil && c.apiKey != "" }

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

const systemPrompt = `You summarize saved web pages.
Return ONLY a JSON object, no markdown fences or explanation:
{"summary": "...", "tags": ["..."], "category": "..."}
- summary: a TL;DR of at most two sentences.
- tags: 3 to 5 single lowercase words.
- category: one of article, shop, video, tool, recipe, other.`

// Summarize returns the summary for rec. Records with too little text are
// not sent; their description becomes the summary. Failures are
// *models.ScrapeError values with a SUMMARIZE_* code.
func (c *Client) Summarize(ctx context.Context, rec *models.ScrapedRecord) (*models.Summary, error) {
	text := strings.TrimSpace(rec.TextContent)
	if len([]rune(text)) <= minTextRunes {
		return &models.Summary{Summary: rec.Description, Tags: []string{}, Category: "other"}, nil
	}
	if !c.Enabled() {
		return nil, models.NewScrapeError(models.ErrCodeSummarizeFailure, "summarization is not configured", nil)
	}

	if r := []rune(text); len(r) > maxInputRunes {
		text = string(r[:maxInputRunes])
	}
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Title: %s\n\nContent: %s", rec.Title, text)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("summarize: marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("summarize: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSummarizeFailure, "summarization request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSummarizeFailure, "failed to read summarization response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyError(resp.StatusCode, respBody)
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSummarizeFailure, "failed to parse summarization response", err)
	}
	if len(chat.Choices) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeSummarizeFailure, "summarization returned no choices", nil)
	}

	var out struct {
		Summary  string   `json:"summary"`
		Tags     []string `json:"tags"`
		Category string   `json:"category"`
	}
	if err := json.Unmarshal([]byte(stripFences(chat.Choices[0].Message.Content)), &out); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSummarizeFailure, "summarization returned invalid JSON", err)
	}

	return &models.Summary{
		Summary:  strings.TrimSpace(out.Summary),
		Tags:     normalizeTags(out.Tags),
		Category: normalizeCategory(out.Category),
	}, nil
}

// stripFences removes a ```json ... ``` wrapper some models add anyway.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// normalizeTags lowercases, keeps the first word of each tag, drops
// duplicates and caps the list.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, maxTags)
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		fields := strings.Fields(strings.ToLower(t))
		if len(fields) == 0 {
			continue
		}
		tag := strings.Trim(fields[0], "#.,;:")
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

func normalizeCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	for _, allowed := range Categories {
		if c == allowed {
			return c
		}
	}
	return "other"
}

// classifyError maps HTTP status codes to SUMMARIZE_* error codes.
func classifyError(statusCode int, body []byte) *models.ScrapeError {
	var errResp chatErrorResponse
	msg := "summarization API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.NewScrapeError(models.ErrCodeSummarizeAuthFailure, msg, nil)
	case http.StatusTooManyRequests:
		return models.NewScrapeError(models.ErrCodeSummarizeRateLimited, msg, nil)
	default:
		return models.NewScrapeError(models.ErrCodeSummarizeFailure, fmt.Sprintf("summarization API returned %d: %s", statusCode, msg), nil)
	}
}
