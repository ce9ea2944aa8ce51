package ingest

import (
	"net/url"
	"strings"

	"github.com/use-agent/linkstash/classifier"
	"github.com/use-agent/linkstash/detector"
	"github.com/use-agent/linkstash/engine"
	"github.com/use-agent/linkstash/extractor"
	"github.com/use-agent/linkstash/models"
)

// Record field caps shared with the extractor.
const (
	maxTitleRunes       = 200
	maxDescriptionRunes = 500
)

// mediaRecord describes a PDF or image URL without fetching it.
func mediaRecord(rawURL string, u *url.URL) models.ScrapedRecord {
	rec := models.ScrapedRecord{
		URL:         rawURL,
		Title:       extractor.HumanizeURL(u),
		ContentType: classifier.Classify(u, nil),
		FetchMethod: models.MethodMedia,
		Meta:        models.Meta{Favicon: extractor.DefaultFavicon(u)},
	}
	if rec.ContentType == models.ContentImage {
		rec.Image = models.StringPtr(rawURL)
	}
	return rec
}

// metadataRecord builds a record from the metadata service's answer. The
// body stays empty.
func metadataRecord(rawURL string, u *url.URL, expected models.ContentType, m *engine.ExternalMetadata) models.ScrapedRecord {
	title := clip(m.Title, maxTitleRunes)
	if title == "" || detector.ValidateResult(title, "") != nil {
		title = extractor.HumanizeURL(u)
	}

	description := clip(m.Description, maxDescriptionRunes)
	if detector.ValidateResult("", description) != nil {
		description = ""
	}

	var image string
	for _, candidate := range []string{m.Screenshot, m.Image} {
		if resolved := extractor.ResolveURL(candidate, u); resolved != "" && extractor.IsValidImageURL(resolved) {
			image = resolved
			break
		}
	}

	favicon := extractor.ResolveURL(m.Logo, u)
	if favicon == "" {
		favicon = extractor.DefaultFavicon(u)
	}

	return models.ScrapedRecord{
		URL:         rawURL,
		Title:       title,
		Description: description,
		ContentType: expected,
		Image:       models.StringPtr(image),
		FetchMethod: models.MethodMetadata,
		Meta: models.Meta{
			SiteName: strings.TrimSpace(m.Publisher),
			Author:   strings.TrimSpace(m.Author),
			Favicon:  favicon,
		},
	}
}

// fallbackRecord is the minimal record returned when every strategy failed.
func fallbackRecord(rawURL string, u *url.URL, expected models.ContentType) models.ScrapedRecord {
	return models.ScrapedRecord{
		URL:         rawURL,
		Title:       extractor.HumanizeURL(u),
		ContentType: expected,
		FetchMethod: models.MethodFallback,
		Meta:        models.Meta{Favicon: extractor.DefaultFavicon(u)},
	}
}

func clip(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > limit {
		return string(r[:limit])
	}
	return s
}
