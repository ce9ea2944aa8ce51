// Command linkstash-mcp serves the linkstash HTTP API as MCP tools over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/linkstash/config"
	"github.com/use-agent/linkstash/models"
)

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	apiURL := os.Getenv("LINKSTASH_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("LINKSTASH_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "LINKSTASH_API_KEY is required")
		os.Exit(1)
	}

	s := newServer(newAPIClient(apiURL, apiKey, 0))
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(api *apiClient) *server.MCPServer {
	s := server.NewMCPServer(
		"linkstash",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	ingestURLTool := mcp.NewTool("ingest_url",
		mcp.WithDescription("Save a link: fetch the page and return its title, description, content type, preview image and cleaned content. Works on bot-protected and JavaScript-rendered pages and always returns a record."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The http(s) URL to ingest"),
		),
		mcp.WithString("content_format",
			mcp.Description("Format of the returned content: 'markdown' (default here), 'text' or 'html'"),
			mcp.Enum("markdown", "text", "html"),
		),
		mcp.WithBoolean("summarize",
			mcp.Description("Also return a two-sentence summary, tags and a category when the server has a summarizer configured"),
		),
	)
	s.AddTool(ingestURLTool, handleIngestURL(api))

	ingestBatchTool := mcp.NewTool("ingest_batch",
		mcp.WithDescription("Ingest up to 50 URLs in parallel and return a record for each, in order."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of http(s) URLs to ingest"),
			mcp.WithStringItems(),
		),
		mcp.WithString("content_format",
			mcp.Description("Format of the returned content: 'markdown' (default here), 'text' or 'html'"),
			mcp.Enum("markdown", "text", "html"),
		),
	)
	s.AddTool(ingestBatchTool, handleIngestBatch(api))

	return s
}

// apiClient calls the linkstash HTTP API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newAPIClient(baseURL, apiKey string, timeout time.Duration) *apiClient {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// post sends payload to path and decodes the JSON response into out. Error
// responses carrying a JSON body are decoded too; callers inspect out.
func (a *apiClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", a.apiKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response (HTTP %d): %w", resp.StatusCode, err)
	}
	return nil
}

func handleIngestURL(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := models.IngestRequest{
			URL:           url,
			ContentFormat: request.GetString("content_format", "markdown"),
			Summarize:     request.GetBool("summarize", false),
		}

		var resp models.IngestResponse
		if err := api.post(ctx, "/api/v1/ingest", payload, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !resp.Success || resp.Record == nil {
			return mcp.NewToolResultError(errorText(resp.Error, "ingest failed")), nil
		}

		var sb strings.Builder
		writeRecord(&sb, resp.Record)
		if resp.Summary != nil {
			fmt.Fprintf(&sb, "Summary: %s\nTags: %s\nCategory: %s\n",
				resp.Summary.Summary, strings.Join(resp.Summary.Tags, ", "), resp.Summary.Category)
		} else if resp.SummaryError != nil {
			fmt.Fprintf(&sb, "Summary unavailable: %s\n", errorText(resp.SummaryError, ""))
		}
		sb.WriteString("\n")
		sb.WriteString(resp.Record.Content)

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleIngestBatch(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		payload := models.BatchRequest{
			URLs:          urls,
			ContentFormat: request.GetString("content_format", "markdown"),
		}

		var resp models.BatchResponse
		if err := api.post(ctx, "/api/v1/ingest/batch", payload, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if resp.Results == nil {
			return mcp.NewToolResultError("batch request rejected"), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Batch: %d/%d succeeded\n\n", resp.Succeeded, resp.Total)
		for i, item := range resp.Results {
			if !item.Success || item.Record == nil {
				fmt.Fprintf(&sb, "--- [%d] %s FAILED: %s ---\n\n", i+1, item.URL, errorText(item.Error, "unknown error"))
				continue
			}
			fmt.Fprintf(&sb, "--- [%d] %s ---\n", i+1, item.URL)
			writeRecord(&sb, item.Record)
			sb.WriteString("\n")
			sb.WriteString(item.Record.Content)
			sb.WriteString("\n\n")
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

// writeRecord writes the record header lines.
func writeRecord(sb *strings.Builder, rec *models.ScrapedRecord) {
	fmt.Fprintf(sb, "Title: %s\nURL: %s\nType: %s\n", rec.Title, rec.URL, rec.ContentType)
	if rec.Description != "" {
		fmt.Fprintf(sb, "Description: %s\n", rec.Description)
	}
	if img := rec.ImageURL(); img != "" {
		fmt.Fprintf(sb, "Image: %s\n", img)
	}
	if rec.Meta.SiteName != "" {
		fmt.Fprintf(sb, "Site: %s\n", rec.Meta.SiteName)
	}
	fmt.Fprintf(sb, "Fetched via: %s\n", rec.FetchMethod)
}

func errorText(e *models.ErrorDetail, fallback string) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}
