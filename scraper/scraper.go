// Package scraper is the local headless-browser rendering backend. It keeps
// one Chromium process alive and renders pages in a bounded pool of tabs.
package scraper

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// Options configures the browser process and its tab pool.
type Options struct {
	Headless  bool
	NoSandbox bool

	// Bin overrides the Chromium binary path.
	Bin string

	// Proxy is passed to Chromium for every request.
	Proxy string

	// MaxPages caps concurrent tabs. Default: 4.
	MaxPages int

	// BlockedResourceTypes lists CDP resource types never loaded, e.g.
	// "Image", "Stylesheet", "Font", "Media".
	BlockedResourceTypes []string

	// BlockAds drops requests to known ad and tracking hosts.
	BlockAds bool

	// RemoveOverlays strips cookie banners and login modals before the DOM
	// is read.
	RemoveOverlays bool
}

// Browser renders pages in a local Chromium. It implements
// engine.RenderBackend and is safe for concurrent use.
type Browser struct {
	browser *rod.Browser
	pool    rod.Pool[tab]
	opts    Options
	blocked resourceTypeSet
	active  atomic.Int32
	nextID  atomic.Int64
}

// Launch starts Chromium and connects to it.
func Launch(opts Options) (*Browser, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 4
	}

	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	if opts.Proxy != "" {
		l = l.Proxy(opts.Proxy)
	}

	// Stealth flags.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("scraper: launch browser: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("scraper: connect to browser: %w", err)
	}
	slog.Info("tab pool created", "maxPages", opts.MaxPages)

	return &Browser{
		browser: browser,
		pool:    rod.NewPool[tab](opts.MaxPages),
		opts:    opts,
		blocked: newResourceTypeSet(opts.BlockedResourceTypes),
	}, nil
}

func (b *Browser) Name() string { return "browser" }

// ActivePages returns the number of tabs currently rendering.
func (b *Browser) ActivePages() int { return int(b.active.Load()) }

// MaxPages returns the tab pool capacity.
func (b *Browser) MaxPages() int { return b.opts.MaxPages }

// Close drains the tab pool and kills the browser process.
func (b *Browser) Close() {
	slog.Info("browser shutting down: draining tab pool")
	b.pool.Cleanup(func(t *tab) { t.close() })
	if err := b.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	slog.Info("browser shutdown complete")
}

// openTab creates a tab with stealth and request blocking installed. Both
// apply to every later navigation, so they are set up once per tab.
func (b *Browser) openTab() (*tab, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("scraper: open tab: %w", err)
	}
	t := newTab(b.nextID.Add(1), page, time.Now())
	if err := t.injectStealth(); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "tab", t.id, "error", err)
	}
	t.router = setupHijack(page, b.blocked, b.opts.BlockAds)
	return t, nil
}
