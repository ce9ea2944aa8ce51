package scraper

import (
	"log/slog"
	"math"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// Tab retirement thresholds. A tab that keeps failing, has served many
// pages, or has lived long enough is closed and replaced to bound renderer
// memory growth.
const (
	maxTabErrScore = 3.0
	maxTabUses     = 50
	maxTabAge      = 50 * time.Minute
)

// tab is one pooled browser page with health tracking. A tab is owned by a
// single render call while checked out, so it needs no locking.
type tab struct {
	id       int64
	page     *rod.Page
	router   *rod.HijackRouter
	errScore float64
	uses     int
	created  time.Time
}

func newTab(id int64, page *rod.Page, now time.Time) *tab {
	return &tab{id: id, page: page, created: now}
}

func (t *tab) injectStealth() error {
	_, err := t.page.EvalOnNewDocument(stealth.JS)
	return err
}

func (t *tab) recordSuccess() {
	t.uses++
	t.errScore = math.Max(0, t.errScore-0.5)
}

func (t *tab) recordFailure() {
	t.uses++
	t.errScore++
}

func (t *tab) shouldRetire(now time.Time) bool {
	return t.errScore >= maxTabErrScore ||
		t.uses >= maxTabUses ||
		now.Sub(t.created) >= maxTabAge
}

// close stops request interception and closes the page.
func (t *tab) close() {
	if t.router != nil {
		_ = t.router.Stop()
	}
	if t.page != nil {
		if err := t.page.Close(); err != nil {
			slog.Debug("tab close failed", "tab", t.id, "error", err)
		}
	}
}
