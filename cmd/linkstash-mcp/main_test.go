package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/linkstash/models"
)

func callTool(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestIngestURL(t *testing.T) {
	var got models.IngestRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ingest", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(models.IngestResponse{
			Success: true,
			Record: &models.ScrapedRecord{
				URL: got.URL, Title: "Hello", ContentType: models.ContentArticle,
				Image: models.StringPtr("https://example.com/a.jpg"), Content: "# Hello",
				FetchMethod: models.MethodDirect,
			},
			Summary: &models.Summary{Summary: "Short.", Tags: []string{"a", "b"}, Category: "article"},
		})
	}))
	defer srv.Close()

	text, isErr := callTool(t, handleIngestURL(newAPIClient(srv.URL, "secret", 0)),
		map[string]any{"url": "https://example.com", "summarize": true})
	assert.False(t, isErr)
	assert.Equal(t, "markdown", got.ContentFormat)
	assert.True(t, got.Summarize)
	assert.Contains(t, text, "Title: Hello")
	assert.Contains(t, text, "Image: https://example.com/a.jpg")
	assert.Contains(t, text, "Tags: a, b")
	assert.Contains(t, text, "# Hello")
}

func TestIngestURL_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(models.IngestResponse{
			Error: &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: "invalid url"},
		})
	}))
	defer srv.Close()
	h := handleIngestURL(newAPIClient(srv.URL, "k", 0))

	text, isErr := callTool(t, h, map[string]any{"url": "nope"})
	assert.True(t, isErr)
	assert.Contains(t, text, "[INVALID_INPUT] invalid url")

	_, isErr = callTool(t, h, map[string]any{})
	assert.True(t, isErr)
}

func TestIngestBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ingest/batch", r.URL.Path)
		_ = json.NewEncoder(w).Encode(models.BatchResponse{
			Total: 2, Succeeded: 1,
			Results: []models.BatchItem{
				{URL: "https://a.com", Success: true, Record: &models.ScrapedRecord{URL: "https://a.com", Title: "A"}},
				{URL: "bad", Error: &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: "invalid url"}},
			},
		})
	}))
	defer srv.Close()

	text, isErr := callTool(t, handleIngestBatch(newAPIClient(srv.URL, "k", 0)),
		map[string]any{"urls": []any{"https://a.com", "bad"}})
	assert.False(t, isErr)
	assert.Contains(t, text, "Batch: 1/2 succeeded")
	assert.Contains(t, text, "Title: A")
	assert.Contains(t, text, "[2] bad FAILED: [INVALID_INPUT] invalid url")
}
