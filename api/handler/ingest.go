package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/linkstash/cache"
	"github.com/use-agent/linkstash/detector"
	"github.com/use-agent/linkstash/extractor"
	"github.com/use-agent/linkstash/models"
)

// statusClientClosedRequest is reported when the caller went away mid-ingest.
const statusClientClosedRequest = 499

// Ingester turns a URL into a record. *ingest.Pipeline implements it.
type Ingester interface {
	Ingest(ctx context.Context, rawURL string) (*models.ScrapedRecord, error)
}

// Summarizer is the AI summarization collaborator. *summarize.Client
// implements it.
type Summarizer interface {
	Enabled() bool
	Summarize(ctx context.Context, rec *models.ScrapedRecord) (*models.Summary, error)
}

// Ingest returns a handler for POST /api/v1/ingest.
//
// Flow:
//  1. Parse request, apply defaults.
//  2. Cache lookup when max_age is set.
//  3. Pipeline.Ingest, then render Content in the requested format.
//  4. Cache store.
//  5. Optional summarization; its failure never fails the response.
func Ingest(ing Ingester, sum Summarizer, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.IngestResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		resp := models.IngestResponse{Success: true}
		useCache := cc != nil && req.MaxAge > 0
		cacheKey := cache.Key(req.URL, req.ContentFormat)

		var rec models.ScrapedRecord
		hit := false
		if useCache {
			rec, hit = cc.Get(cacheKey, req.MaxAge)
		}

		if hit {
			resp.CacheStatus = "hit"
		} else {
			ingestStart := time.Now()
			got, err := ing.Ingest(c.Request.Context(), req.URL)
			resp.Timing.IngestMs = time.Since(ingestStart).Milliseconds()
			if err != nil {
				respondError(c, err, models.TimingInfo{
					TotalMs:  time.Since(totalStart).Milliseconds(),
					IngestMs: resp.Timing.IngestMs,
				})
				return
			}
			rec = formatRecord(*got, req.ContentFormat)
			if useCache {
				cc.Set(cacheKey, rec)
				resp.CacheStatus = "miss"
			}
		}
		resp.Record = &rec

		if req.Summarize && sum != nil && sum.Enabled() {
			sumStart := time.Now()
			summary, err := sum.Summarize(c.Request.Context(), &rec)
			resp.Timing.SummarizeMs = time.Since(sumStart).Milliseconds()
			if err != nil {
				slog.Warn("summarization failed", "url", req.URL, "error", err)
				resp.SummaryError = toScrapeError(err).ToDetail()
			} else {
				resp.Summary = summary
			}
		}

		resp.Timing.TotalMs = time.Since(totalStart).Milliseconds()
		c.JSON(http.StatusOK, resp)
	}
}

// formatRecord renders rec.Content as html (unchanged), markdown or text.
// Records without HTML content get their plain text in text format. A
// markdown conversion failure keeps the HTML.
func formatRecord(rec models.ScrapedRecord, format string) models.ScrapedRecord {
	switch format {
	case "markdown":
		md, err := extractor.ToMarkdown(rec.Content, rec.URL)
		if err != nil {
			slog.Warn("markdown conversion failed", "url", rec.URL, "error", err)
			return rec
		}
		rec.Content = md
	case "text":
		if rec.Content == "" {
			rec.Content = rec.TextContent
		} else {
			rec.Content = detector.VisibleText(rec.Content)
		}
	}
	return rec
}

// toScrapeError returns err as a *ScrapeError, wrapping unknown errors as
// INTERNAL_ERROR.
func toScrapeError(err error) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	se := toScrapeError(err)
	c.JSON(mapErrorToStatus(se), models.IngestResponse{
		Success: false,
		Error:   se.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeCanceled:
		return statusClientClosedRequest // 499
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
