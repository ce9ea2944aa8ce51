package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/use-agent/linkstash/detector"
	"github.com/use-agent/linkstash/models"
)

const (
	// DefaultRenderTimeout bounds one rendering fetch.
	DefaultRenderTimeout = 12 * time.Second

	// DefaultRenderCooldown is how long the engine stays disabled after the
	// backend reports bad credentials or an exhausted quota.
	DefaultRenderCooldown = 10 * time.Minute
)

// RenderBackend produces the DOM of a page after JavaScript has run. The
// remote rendering API client and the local headless browser both qualify.
// Failures must be *FetchError values.
type RenderBackend interface {
	Name() string
	Render(ctx context.Context, targetURL string) (*FetchResult, error)
}

// RenderOptions configures a RenderEngine. Zero values select the defaults.
type RenderOptions struct {
	Timeout  time.Duration
	Cooldown time.Duration
}

// RenderEngine is the rendering fetch strategy. It wraps a RenderBackend
// with a timeout, the block/shell detector, and a cool-down that stops
// calling a backend whose credentials or quota are known to be bad.
type RenderEngine struct {
	backend  RenderBackend
	timeout  time.Duration
	cooldown time.Duration

	// disabledUntil is a unix-nano timestamp; zero means enabled.
	disabledUntil atomic.Int64
	now           func() time.Time
}

// NewRenderEngine creates a RenderEngine. A nil backend yields an engine
// that always reports not_configured.
func NewRenderEngine(backend RenderBackend, opts RenderOptions) *RenderEngine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRenderTimeout
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultRenderCooldown
	}
	return &RenderEngine{
		backend:  backend,
		timeout:  opts.Timeout,
		cooldown: opts.Cooldown,
		now:      time.Now,
	}
}

func (e *RenderEngine) Name() string {
	if e.backend == nil {
		return "render"
	}
	return "render/" + e.backend.Name()
}

// Available reports whether the engine has a backend and is not cooling down.
func (e *RenderEngine) Available() bool {
	return e.backend != nil && e.now().UnixNano() >= e.disabledUntil.Load()
}

func (e *RenderEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.backend == nil {
		return nil, fetchErr(models.MethodRendering, ReasonNotConfigured, errors.New("render_engine: no backend"))
	}
	if until := e.disabledUntil.Load(); e.now().UnixNano() < until {
		return nil, fetchErr(models.MethodRendering, ReasonNotConfigured,
			fmt.Errorf("render_engine: cooling down until %s", time.Unix(0, until).Format(time.RFC3339)))
	}

	renderCtx, cancel := context.WithTimeout(ctx, timeoutFor(req, e.timeout))
	defer cancel()

	result, err := e.backend.Render(renderCtx, req.URL)
	if err != nil {
		reason := ReasonOf(err)
		if reason == "" {
			reason = transportReason(ctx, err)
		}
		if ctx.Err() != nil {
			reason = ReasonCanceled
		}
		if reason.Fatal() {
			e.disabledUntil.Store(e.now().Add(e.cooldown).UnixNano())
			slog.Warn("render backend disabled",
				"backend", e.backend.Name(), "reason", reason, "cooldown", e.cooldown)
		}
		return nil, fetchErr(models.MethodRendering, reason, err)
	}

	if detector.IsBlocked(result.HTML) {
		return nil, fetchErr(models.MethodRendering, ReasonBlocked,
			fmt.Errorf("render_engine: %s returned a challenge or shell page", e.backend.Name()))
	}

	result.Method = models.MethodRendering
	if result.FinalURL == "" {
		result.FinalURL = req.URL
	}
	return result, nil
}
