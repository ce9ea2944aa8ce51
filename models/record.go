package models

// ContentType is the coarse classification of an ingested URL.
type ContentType string

const (
	ContentWebsite ContentType = "website"
	ContentArticle ContentType = "article"
	ContentVideo   ContentType = "video"
	ContentImage   ContentType = "image"
	ContentProduct ContentType = "product"
	ContentSocial  ContentType = "social"
	ContentPDF     ContentType = "pdf"
	ContentCode    ContentType = "code"
)

// ContentTypes lists every valid ContentType.
var ContentTypes = []ContentType{
	ContentWebsite, ContentArticle, ContentVideo, ContentImage,
	ContentProduct, ContentSocial, ContentPDF, ContentCode,
}

// Valid reports whether t is one of the closed set of content types.
func (t ContentType) Valid() bool {
	for _, c := range ContentTypes {
		if c == t {
			return true
		}
	}
	return false
}

// FetchMethod records which strategy produced a record.
type FetchMethod string

const (
	MethodDirect    FetchMethod = "direct"
	MethodRendering FetchMethod = "rendering"
	MethodMetadata  FetchMethod = "metadata"
	MethodMedia     FetchMethod = "media"
	MethodFallback  FetchMethod = "fallback"
)

// ScrapedRecord is the normalized output of one ingestion. It is built once
// and handed off by value; nothing in the pipeline keeps a reference to it.
type ScrapedRecord struct {
	// URL is the input URL exactly as given.
	URL string `json:"url"`

	// Title is never empty.
	Title string `json:"title"`

	Description string `json:"description"`

	ContentType ContentType `json:"content_type"`

	// Image is nil when no candidate passed validation.
	Image *string `json:"image"`

	// Content is the cleaned HTML body.
	Content string `json:"content"`

	// TextContent is cleaned plain text, capped for summarization.
	TextContent string `json:"text_content"`

	Meta Meta `json:"meta"`

	// FetchMethod is the provenance of the record.
	FetchMethod FetchMethod `json:"fetch_method"`
}

// Meta is the fixed-shape metadata bag of a record. Empty fields are absent.
type Meta struct {
	SiteName           string `json:"site_name,omitempty"`
	Favicon            string `json:"favicon,omitempty"`
	CanonicalURL       string `json:"canonical_url,omitempty"`
	Price              string `json:"price,omitempty"`
	Currency           string `json:"currency,omitempty"`
	Author             string `json:"author,omitempty"`
	PublishedTime      string `json:"published_time,omitempty"`
	ReadingTimeMinutes int    `json:"reading_time_minutes,omitempty"`
	HasCode            bool   `json:"has_code,omitempty"`
	VideoURL           string `json:"video_url,omitempty"`
}

// ImageURL returns the record image or "" when there is none.
func (r *ScrapedRecord) ImageURL() string {
	if r.Image == nil {
		return ""
	}
	return *r.Image
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
