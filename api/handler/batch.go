package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/use-agent/linkstash/models"
)

// DefaultBatchConcurrency bounds parallel ingestions when none is configured.
const DefaultBatchConcurrency = 5

// PostBatch returns a handler for POST /api/v1/ingest/batch. URLs are
// ingested concurrently, at most concurrency at a time, and results come
// back in request order. One URL failing never fails the batch.
func PostBatch(ing Ingester, concurrency int) gin.HandlerFunc {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.BatchRequest
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
		format := req.ContentFormat
		if format == "" {
			format = "html"
		}

		results := runBatch(c.Request.Context(), ing, req.URLs, format, concurrency)

		succeeded := 0
		for _, r := range results {
			if r.Success {
				succeeded++
			}
		}
		slog.Info("batch finished", "total", len(results), "succeeded", succeeded)

		c.JSON(http.StatusOK, models.BatchResponse{
			Total:     len(results),
			Succeeded: succeeded,
			Results:   results,
			Timing:    models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()},
		})
	}
}

// runBatch ingests every URL and fills one BatchItem per index. Each
// goroutine writes only its own slot.
func runBatch(ctx context.Context, ing Ingester, urls []string, format string, concurrency int) []models.BatchItem {
	results := make([]models.BatchItem, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, u := range urls {
		g.Go(func() error {
			results[i] = ingestOne(gctx, ing, u, format)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func ingestOne(ctx context.Context, ing Ingester, rawURL, format string) models.BatchItem {
	item := models.BatchItem{URL: rawURL}
	rec, err := ing.Ingest(ctx, rawURL)
	if err != nil {
		item.Error = toScrapeError(err).ToDetail()
		return item
	}
	formatted := formatRecord(*rec, format)
	item.Success = true
	item.Record = &formatted
	return item
}
