package models

// IngestRequest is the payload for POST /api/v1/ingest.
type IngestRequest struct {
	// URL is the page to ingest. Required. Validation of its shape is left to
	// the pipeline so the API and library report the same error.
	URL string `json:"url" binding:"required"`

	// ContentFormat controls how the record's Content field is rendered.
	// Allowed: "html" (default), "markdown", "text".
	ContentFormat string `json:"content_format,omitempty" binding:"omitempty,oneof=html markdown text"`

	// Summarize asks the API to call the summarization collaborator after
	// ingestion. Ignored when no summarizer is configured.
	Summarize bool `json:"summarize,omitempty"`

	// MaxAge enables the response cache: a cached record younger than MaxAge
	// milliseconds is returned without fetching. 0 disables the cache.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *IngestRequest) Defaults() {
	if r.ContentFormat == "" {
		r.ContentFormat = "html"
	}
}
