package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/linkstash/api"
	"github.com/use-agent/linkstash/cache"
	"github.com/use-agent/linkstash/classifier"
	"github.com/use-agent/linkstash/config"
	"github.com/use-agent/linkstash/engine"
	"github.com/use-agent/linkstash/ingest"
	"github.com/use-agent/linkstash/scraper"
	"github.com/use-agent/linkstash/summarize"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("linkstash starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"render_backend", cfg.Render.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 3. Fetch strategies ─────────────────────────────────────────
	engines, closeEngines, err := buildEngines(cfg)
	if err != nil {
		slog.Error("failed to initialise engines", "error", err)
		os.Exit(1)
	}
	defer closeEngines()

	memory := engine.NewDomainMemory(cfg.Hosts.MemoryTTL)
	defer memory.Stop()
	dispatcher := engine.NewDispatcher(engines, classifier.NewHosts(cfg.Hosts.ExtraJSHosts...), memory)

	// ── 4. Pipeline, summarizer, cache ──────────────────────────────
	pipeline := ingest.New(dispatcher, ingest.Options{Timeout: cfg.Server.IngestTimeout})

	var summarizer *summarize.Client
	if cfg.Summarize.APIKey != "" {
		summarizer = summarize.NewClient(summarize.Options{
			BaseURL: cfg.Summarize.BaseURL,
			APIKey:  cfg.Summarize.APIKey,
			Model:   cfg.Summarize.Model,
			Timeout: cfg.Summarize.Timeout,
		})
		slog.Info("summarization enabled")
	}

	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer cc.Stop()

	// ── 5. Setup router ─────────────────────────────────────────────
	deps := api.Deps{
		Ingester:  pipeline,
		Probe:     dispatcher,
		Cache:     cc,
		StartTime: time.Now(),
	}
	if summarizer != nil {
		deps.Summarizer = summarizer
	}
	router := api.NewRouter(ctx, cfg, deps)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		slog.Error("HTTP server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("linkstash stopped")
}

// buildEngines creates the configured fetch strategies. The returned func
// releases the browser when one was launched.
func buildEngines(cfg *config.Config) (engine.Engines, func(), error) {
	engines := engine.Engines{
		Direct: engine.NewHTTPEngine(engine.HTTPOptions{
			Timeout:   cfg.Fetch.DirectTimeout,
			UserAgent: cfg.Fetch.UserAgent,
		}),
	}
	cleanup := func() {}

	var backend engine.RenderBackend
	switch cfg.Render.Backend {
	case config.RenderBackendAPI:
		if cfg.Render.APIKey == "" {
			return engines, cleanup, errors.New("render backend api needs LINKSTASH_RENDER_API_KEY")
		}
		backend = engine.NewRenderAPIClient(cfg.Render.APIURL, cfg.Render.APIKey, nil)
	case config.RenderBackendBrowser:
		b, err := scraper.Launch(scraper.Options{
			Headless:             cfg.Browser.Headless,
			NoSandbox:            cfg.Browser.NoSandbox,
			Bin:                  cfg.Browser.Bin,
			Proxy:                cfg.Browser.Proxy,
			MaxPages:             cfg.Browser.MaxPages,
			BlockedResourceTypes: cfg.Browser.BlockedResourceTypes,
			BlockAds:             cfg.Browser.BlockAds,
			RemoveOverlays:       cfg.Browser.RemoveOverlays,
		})
		if err != nil {
			return engines, cleanup, err
		}
		backend = b
		cleanup = b.Close
	case config.RenderBackendNone, "":
	default:
		return engines, cleanup, fmt.Errorf("unknown render backend %q", cfg.Render.Backend)
	}
	if backend != nil {
		engines.Rendering = engine.NewRenderEngine(backend, engine.RenderOptions{
			Timeout:  cfg.Fetch.RenderTimeout,
			Cooldown: cfg.Render.Cooldown,
		})
		slog.Info("rendering enabled", "backend", backend.Name())
	}

	if cfg.Metadata.Enabled {
		engines.Metadata = engine.NewMetadataEngine(engine.MetadataOptions{
			BaseURL:    cfg.Metadata.APIURL,
			APIKey:     cfg.Metadata.APIKey,
			Screenshot: cfg.Metadata.Screenshot,
			Timeout:    cfg.Fetch.MetadataTimeout,
		})
	}
	return engines, cleanup, nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
