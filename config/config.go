package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Fetch     FetchConfig
	Render    RenderConfig
	Browser   BrowserConfig
	Metadata  MetadataConfig
	Hosts     HostsConfig
	Summarize SummarizeConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// BatchConcurrency bounds parallel ingestions within one batch request.
	BatchConcurrency int // default: 5

	// IngestTimeout bounds one whole ingestion.
	IngestTimeout time.Duration // default: 45s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid operator keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// CacheConfig controls the record cache.
type CacheConfig struct {
	MaxEntries int           // default: 1000
	TTL        time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// FetchConfig controls the per-strategy timeouts.
type FetchConfig struct {
	DirectTimeout   time.Duration // default: 5s
	RenderTimeout   time.Duration // default: 12s
	MetadataTimeout time.Duration // default: 15s

	// UserAgent overrides the direct fetch User-Agent.
	UserAgent string
}

// Rendering backends.
const (
	RenderBackendAPI     = "api"
	RenderBackendBrowser = "browser"
	RenderBackendNone    = "none"
)

// RenderConfig selects and configures the Rendering Fetch backend.
type RenderConfig struct {
	// Backend is "api", "browser" or "none". Default: "api" when an API key
	// is set, otherwise "none".
	Backend string

	APIURL string // default: ScrapingAnt
	APIKey string

	// Cooldown is how long rendering stays off after a credential or quota
	// failure.
	Cooldown time.Duration // default: 10m
}

// BrowserConfig controls the local Chromium backend.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the tab pool capacity.
	MaxPages int // default: 4

	// Proxy is the proxy URL for all browser requests.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// Bin overrides the Chromium binary path.
	Bin string

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	BlockAds       bool // default: true
	RemoveOverlays bool // default: true
}

// MetadataConfig controls the Metadata Fallback service.
type MetadataConfig struct {
	Enabled    bool   // default: true
	APIURL     string // default: Microlink
	APIKey     string
	Screenshot bool // default: true
}

// HostsConfig controls the JS-required host list.
type HostsConfig struct {
	// ExtraJSHosts extend the built-in list of hosts that skip Direct Fetch.
	ExtraJSHosts []string

	// MemoryTTL is how long a host learned at runtime stays on the list.
	MemoryTTL time.Duration // default: 24h
}

// SummarizeConfig controls the summarization collaborator. Empty APIKey
// disables it.
type SummarizeConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration // default: 20s
}

// LoadEnvFiles loads .env files in priority order: ENV_FILE alone when set,
// otherwise .env.local then .env. Variables already in the environment win.
// Missing files are not an error.
func LoadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("config: load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	renderKey := os.Getenv("LINKSTASH_RENDER_API_KEY")
	defaultBackend := RenderBackendNone
	if renderKey != "" {
		defaultBackend = RenderBackendAPI
	}

	return &Config{
		Server: ServerConfig{
			Host:             envOr("LINKSTASH_HOST", "0.0.0.0"),
			Port:             envIntOr("LINKSTASH_PORT", 8080),
			Mode:             envOr("LINKSTASH_MODE", "release"),
			BatchConcurrency: envIntOr("LINKSTASH_BATCH_CONCURRENCY", 5),
			IngestTimeout:    envDurationOr("LINKSTASH_INGEST_TIMEOUT", 45*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("LINKSTASH_AUTH_ENABLED", true),
			APIKeys: envSliceOr("LINKSTASH_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("LINKSTASH_RATE_RPS", 5.0),
			Burst:             envIntOr("LINKSTASH_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("LINKSTASH_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("LINKSTASH_CACHE_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("LINKSTASH_LOG_LEVEL", "info"),
			Format: envOr("LINKSTASH_LOG_FORMAT", "json"),
		},
		Fetch: FetchConfig{
			DirectTimeout:   envDurationOr("LINKSTASH_DIRECT_TIMEOUT", 5*time.Second),
			RenderTimeout:   envDurationOr("LINKSTASH_RENDER_TIMEOUT", 12*time.Second),
			MetadataTimeout: envDurationOr("LINKSTASH_METADATA_TIMEOUT", 15*time.Second),
			UserAgent:       os.Getenv("LINKSTASH_USER_AGENT"),
		},
		Render: RenderConfig{
			Backend:  strings.ToLower(envOr("LINKSTASH_RENDER_BACKEND", defaultBackend)),
			APIURL:   os.Getenv("LINKSTASH_RENDER_API_URL"),
			APIKey:   renderKey,
			Cooldown: envDurationOr("LINKSTASH_RENDER_COOLDOWN", 10*time.Minute),
		},
		Browser: BrowserConfig{
			Headless:  envBoolOr("LINKSTASH_HEADLESS", true),
			MaxPages:  envIntOr("LINKSTASH_MAX_PAGES", 4),
			Proxy:     os.Getenv("LINKSTASH_PROXY"),
			NoSandbox: envBoolOr("LINKSTASH_NO_SANDBOX", false),
			Bin:       os.Getenv("LINKSTASH_BROWSER_BIN"),
			BlockedResourceTypes: envSliceOr("LINKSTASH_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			BlockAds:       envBoolOr("LINKSTASH_BLOCK_ADS", true),
			RemoveOverlays: envBoolOr("LINKSTASH_REMOVE_OVERLAYS", true),
		},
		Metadata: MetadataConfig{
			Enabled:    envBoolOr("LINKSTASH_METADATA_ENABLED", true),
			APIURL:     os.Getenv("LINKSTASH_METADATA_API_URL"),
			APIKey:     os.Getenv("LINKSTASH_METADATA_API_KEY"),
			Screenshot: envBoolOr("LINKSTASH_METADATA_SCREENSHOT", true),
		},
		Hosts: HostsConfig{
			ExtraJSHosts: envSliceOr("LINKSTASH_JS_HOSTS", nil),
			MemoryTTL:    envDurationOr("LINKSTASH_HOST_MEMORY_TTL", 24*time.Hour),
		},
		Summarize: SummarizeConfig{
			BaseURL: os.Getenv("LINKSTASH_SUMMARIZE_BASE_URL"),
			APIKey:  os.Getenv("LINKSTASH_SUMMARIZE_API_KEY"),
			Model:   os.Getenv("LINKSTASH_SUMMARIZE_MODEL"),
			Timeout: envDurationOr("LINKSTASH_SUMMARIZE_TIMEOUT", 20*time.Second),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
