package models

// BatchRequest is the payload for POST /api/v1/ingest/batch.
type BatchRequest struct {
	// URLs is the list of pages to ingest. Required.
	URLs []string `json:"urls" binding:"required,min=1,max=50"`

	// ContentFormat applies to every record in the batch.
	ContentFormat string `json:"content_format,omitempty" binding:"omitempty,oneof=html markdown text"`
}

// BatchItem is one entry of a batch response, in request order.
type BatchItem struct {
	URL     string         `json:"url"`
	Success bool           `json:"success"`
	Record  *ScrapedRecord `json:"record,omitempty"`
	Error   *ErrorDetail   `json:"error,omitempty"`
}

// BatchResponse is the response for POST /api/v1/ingest/batch.
type BatchResponse struct {
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Results   []BatchItem `json:"results"`
	Timing    TimingInfo  `json:"timing"`
}
