package models

// IngestResponse is the response for POST /api/v1/ingest.
type IngestResponse struct {
	// Success is false only for invalid input or cancelled requests.
	Success bool `json:"success"`

	// Record is the ingested record.
	Record *ScrapedRecord `json:"record,omitempty"`

	// Summary is the summarization collaborator's output, when requested.
	Summary *Summary `json:"summary,omitempty"`

	// SummaryError is set when summarization was requested but failed.
	// The record is still returned.
	SummaryError *ErrorDetail `json:"summary_error,omitempty"`

	// CacheStatus is "hit", "miss", or empty when caching was not requested.
	CacheStatus string `json:"cache_status,omitempty"`

	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// Summary is what the AI summarization collaborator returns for a record.
type Summary struct {
	Summary  string   `json:"summary"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

// TimingInfo breaks down the time spent serving a request.
type TimingInfo struct {
	TotalMs     int64 `json:"total_ms"`
	IngestMs    int64 `json:"ingest_ms"`
	SummarizeMs int64 `json:"summarize_ms,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status      string `json:"status"` // "healthy" or "degraded"
	Uptime      string `json:"uptime"`
	LearnedJS   int    `json:"learned_js_hosts"`
	RenderReady bool   `json:"render_ready"`
	Version     string `json:"version"`
}
