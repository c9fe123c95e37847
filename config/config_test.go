package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != 8080 {
		t.Errorf("port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Fetcher.Timeout != 2*time.Second {
		t.Errorf("fetch timeout: got %v, want 2s", cfg.Fetcher.Timeout)
	}
	if cfg.Fetcher.MaxRetries != 3 {
		t.Errorf("retries: got %d, want 3", cfg.Fetcher.MaxRetries)
	}
	if cfg.Crawler.Workers != 40 {
		t.Errorf("workers: got %d, want 40", cfg.Crawler.Workers)
	}
	if cfg.Resolver.MaxDepth != 3 {
		t.Errorf("sitemap depth: got %d, want 3", cfg.Resolver.MaxDepth)
	}
	if len(cfg.Resolver.SitemapPaths) == 0 || cfg.Resolver.SitemapPaths[0] != "/sitemap.xml" {
		t.Errorf("sitemap paths: got %v", cfg.Resolver.SitemapPaths)
	}
	if cfg.Classifier.Provider != "heuristic" {
		t.Errorf("classifier: got %q, want heuristic", cfg.Classifier.Provider)
	}
	if cfg.Extractor.DefaultCurrency != "VND" {
		t.Errorf("currency: got %q, want VND", cfg.Extractor.DefaultCurrency)
	}
	if cfg.Sink.Driver != "log" {
		t.Errorf("sink driver: got %q, want log", cfg.Sink.Driver)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SHOPCRAWL_PORT", "9090")
	t.Setenv("SHOPCRAWL_FETCH_TIMEOUT", "5s")
	t.Setenv("SHOPCRAWL_WORKERS", "8")
	t.Setenv("SHOPCRAWL_SITEMAP_PATHS", "/custom.xml, /other.xml")
	t.Setenv("SHOPCRAWL_AUTH_ENABLED", "false")
	t.Setenv("SHOPCRAWL_RATE_RPS", "2.5")

	cfg := Load()

	if cfg.Server.Port != 9090 {
		t.Errorf("port: got %d, want 9090", cfg.Server.Port)
	}
	if cfg.Fetcher.Timeout != 5*time.Second {
		t.Errorf("fetch timeout: got %v, want 5s", cfg.Fetcher.Timeout)
	}
	if cfg.Crawler.Workers != 8 {
		t.Errorf("workers: got %d, want 8", cfg.Crawler.Workers)
	}
	if len(cfg.Resolver.SitemapPaths) != 2 || cfg.Resolver.SitemapPaths[1] != "/other.xml" {
		t.Errorf("sitemap paths: got %v", cfg.Resolver.SitemapPaths)
	}
	if cfg.Auth.Enabled {
		t.Error("auth should be disabled")
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("rate: got %v, want 2.5", cfg.RateLimit.RequestsPerSecond)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("SHOPCRAWL_PORT", "not-a-number")
	t.Setenv("SHOPCRAWL_FETCH_TIMEOUT", "soon")

	cfg := Load()
	if cfg.Server.Port != 8080 {
		t.Errorf("port: got %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Fetcher.Timeout != 2*time.Second {
		t.Errorf("fetch timeout: got %v, want default 2s", cfg.Fetcher.Timeout)
	}
}
