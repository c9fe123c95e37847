package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Fetcher    FetcherConfig
	Resolver   ResolverConfig
	Classifier ClassifierConfig
	Crawler    CrawlerConfig
	Extractor  ExtractorConfig
	Sink       SinkConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Cache      CacheConfig
	Log        LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// FetcherConfig controls the HTTP fetcher.
type FetcherConfig struct {
	// Timeout is the per-attempt request deadline.
	Timeout time.Duration // default: 2s

	// MaxRetries bounds automatic retries on 429/5xx responses.
	MaxRetries int // default: 3

	// RetryBackoff is the base backoff between status retries; each
	// further attempt doubles it.
	RetryBackoff time.Duration // default: 500ms

	// AcceptBackoff is the pause between Accept-header variants.
	AcceptBackoff time.Duration // default: 100ms

	// PoolConnections caps idle connections kept per host.
	PoolConnections int // default: 50

	// UserAgent is sent on every request.
	UserAgent string

	// CurlPath is the external HTTP client used as a last resort.
	CurlPath string // default: "curl"

	// CurlTimeout bounds the subprocess fallback fetch.
	CurlTimeout time.Duration // default: 15s

	// MaxBodyBytes caps response body reads.
	MaxBodyBytes int64 // default: 10 MB
}

// ResolverConfig controls sitemap resolution.
type ResolverConfig struct {
	// MaxDepth bounds recursive sitemap-index expansion.
	MaxDepth int // default: 3

	// SitemapPaths is the ordered list of canonical sitemap locations
	// probed against the site root.
	SitemapPaths []string
}

// ClassifierConfig selects the sitemap classifier implementation.
type ClassifierConfig struct {
	// Provider is "heuristic" or "llm".
	Provider string // default: "heuristic"

	// LLM settings, used when Provider is "llm".
	APIKey  string
	Model   string        // default: "gpt-4o-mini"
	BaseURL string        // default: "https://api.openai.com/v1"
	Timeout time.Duration // default: 30s
}

// CrawlerConfig controls the crawl orchestrator.
type CrawlerConfig struct {
	// Workers is the extraction worker pool size.
	Workers int // default: 40

	// MaxProducts caps extracted pages per crawl.
	MaxProducts int // default: 10000

	// JitterMin/JitterMax bound the random delay before each page fetch.
	JitterMin time.Duration // default: 100ms
	JitterMax time.Duration // default: 500ms

	// Deadline is the global wall-clock budget for one crawl.
	Deadline time.Duration // default: 1h
}

// ExtractorConfig controls product field extraction.
type ExtractorConfig struct {
	// DescriptionMaxLen truncates extracted descriptions.
	DescriptionMaxLen int // default: 5000

	// MaxImages caps the image list.
	MaxImages int // default: 5

	// PriceMax is the exclusive upper bound for a valid price; anything
	// outside [0, PriceMax) is reset to 0.
	PriceMax float64 // default: 1e15

	// DefaultCurrency is used when no currency is found on the page.
	DefaultCurrency string // default: "VND"
}

// SinkConfig controls the ingestion sink.
type SinkConfig struct {
	// Driver is "log" or "postgres".
	Driver string // default: "log"

	// DSN is the Postgres connection string.
	DSN string

	// BatchSize bounds rows per upsert batch.
	BatchSize int // default: 100
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// CacheConfig controls the extract response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached records.
	MaxEntries int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host: envOr("SHOPCRAWL_HOST", "0.0.0.0"),
			Port: envIntOr("SHOPCRAWL_PORT", 8080),
			Mode: envOr("SHOPCRAWL_MODE", "release"),
		},
		Fetcher: FetcherConfig{
			Timeout:         envDurationOr("SHOPCRAWL_FETCH_TIMEOUT", 2*time.Second),
			MaxRetries:      envIntOr("SHOPCRAWL_FETCH_RETRIES", 3),
			RetryBackoff:    envDurationOr("SHOPCRAWL_FETCH_BACKOFF", 500*time.Millisecond),
			AcceptBackoff:   envDurationOr("SHOPCRAWL_ACCEPT_BACKOFF", 100*time.Millisecond),
			PoolConnections: envIntOr("SHOPCRAWL_POOL_CONNECTIONS", 50),
			UserAgent:       envOr("SHOPCRAWL_USER_AGENT", chromeUA),
			CurlPath:        envOr("SHOPCRAWL_CURL_PATH", "curl"),
			CurlTimeout:     envDurationOr("SHOPCRAWL_CURL_TIMEOUT", 15*time.Second),
			MaxBodyBytes:    int64(envIntOr("SHOPCRAWL_MAX_BODY_BYTES", 10<<20)),
		},
		Resolver: ResolverConfig{
			MaxDepth: envIntOr("SHOPCRAWL_SITEMAP_DEPTH", 3),
			SitemapPaths: envSliceOr("SHOPCRAWL_SITEMAP_PATHS", []string{
				"/sitemap.xml",
				"/sitemap_index.xml",
				"/sitemap-index.xml",
				"/product-sitemap.xml",
				"/products-sitemap.xml",
			}),
		},
		Classifier: ClassifierConfig{
			Provider: envOr("SHOPCRAWL_CLASSIFIER", "heuristic"),
			APIKey:   os.Getenv("OPENAI_API_KEY"),
			Model:    envOr("SHOPCRAWL_LLM_MODEL", "gpt-4o-mini"),
			BaseURL:  envOr("SHOPCRAWL_LLM_BASE_URL", "https://api.openai.com/v1"),
			Timeout:  envDurationOr("SHOPCRAWL_LLM_TIMEOUT", 30*time.Second),
		},
		Crawler: CrawlerConfig{
			Workers:     envIntOr("SHOPCRAWL_WORKERS", 40),
			MaxProducts: envIntOr("SHOPCRAWL_MAX_PRODUCTS", 10000),
			JitterMin:   envDurationOr("SHOPCRAWL_JITTER_MIN", 100*time.Millisecond),
			JitterMax:   envDurationOr("SHOPCRAWL_JITTER_MAX", 500*time.Millisecond),
			Deadline:    envDurationOr("SHOPCRAWL_CRAWL_DEADLINE", time.Hour),
		},
		Extractor: ExtractorConfig{
			DescriptionMaxLen: envIntOr("SHOPCRAWL_DESC_MAX_LEN", 5000),
			MaxImages:         envIntOr("SHOPCRAWL_MAX_IMAGES", 5),
			PriceMax:          envFloatOr("SHOPCRAWL_PRICE_MAX", 1e15),
			DefaultCurrency:   envOr("SHOPCRAWL_CURRENCY", "VND"),
		},
		Sink: SinkConfig{
			Driver:    envOr("SHOPCRAWL_SINK", "log"),
			DSN:       os.Getenv("SHOPCRAWL_SINK_DSN"),
			BatchSize: envIntOr("SHOPCRAWL_SINK_BATCH", 100),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SHOPCRAWL_AUTH_ENABLED", true),
			APIKeys: envSliceOr("SHOPCRAWL_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SHOPCRAWL_RATE_RPS", 5.0),
			Burst:             envIntOr("SHOPCRAWL_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("SHOPCRAWL_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("SHOPCRAWL_LOG_LEVEL", "info"),
			Format: envOr("SHOPCRAWL_LOG_FORMAT", "json"),
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
