package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopcrawl/shopcrawl/api"
	"github.com/shopcrawl/shopcrawl/cache"
	"github.com/shopcrawl/shopcrawl/classifier"
	"github.com/shopcrawl/shopcrawl/config"
	"github.com/shopcrawl/shopcrawl/crawler"
	"github.com/shopcrawl/shopcrawl/extractor"
	"github.com/shopcrawl/shopcrawl/fetcher"
	"github.com/shopcrawl/shopcrawl/sink"
	"github.com/shopcrawl/shopcrawl/sitemap"
)

func main() {
	var (
		flagURL      = flag.String("url", "", "crawl this site once and print results as JSON instead of serving")
		flagMax      = flag.Int("max", 0, "max products for one-shot crawl (0 = config default)")
		flagWorkers  = flag.Int("workers", 0, "worker pool size for one-shot crawl (0 = config default)")
		flagDeadline = flag.Duration("deadline", 0, "wall-clock budget for one-shot crawl (0 = config default)")
	)
	flag.Parse()

	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	// ── 3. Build the crawl pipeline ─────────────────────────────────
	f := fetcher.New(cfg.Fetcher)
	cls := classifier.FromConfig(cfg.Classifier)
	res := sitemap.NewResolver(cfg.Resolver, f, cls)
	ex := extractor.New(cfg.Extractor)
	cr := crawler.New(cfg.Crawler, f, res, ex)

	sk, err := buildSink(cfg.Sink)
	if err != nil {
		slog.Error("failed to initialise sink", "error", err)
		os.Exit(1)
	}
	defer sk.Close()

	// ── 4. One-shot CLI mode ────────────────────────────────────────
	if *flagURL != "" {
		runOnce(cr, sk, *flagURL, *flagMax, *flagWorkers, *flagDeadline)
		return
	}

	slog.Info("shopcrawl starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"sink", cfg.Sink.Driver,
		"classifier", cfg.Classifier.Provider,
	)

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(cfg, api.Deps{
		Fetcher:   f,
		Resolver:  res,
		Extractor: ex,
		Crawler:   cr,
		Sink:      sk,
		Cache:     cache.New(cfg.Cache.MaxEntries),
		StartTime: time.Now(),
	})

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("shopcrawl stopped")
}

// runOnce crawls a single site and writes the records to stdout and the sink.
func runOnce(cr *crawler.Crawler, sk sink.Sink, url string, maxProducts, workers int, deadline time.Duration) {
	result, err := cr.Crawl(context.Background(), url, crawler.Params{
		MaxProducts: maxProducts,
		Workers:     workers,
		Deadline:    deadline,
	})
	if err != nil {
		slog.Error("crawl failed", "url", url, "error", err)
		os.Exit(1)
	}

	if err := sk.Upsert(context.Background(), result.Products); err != nil {
		slog.Error("sink upsert failed", "error", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.Products); err != nil {
		slog.Error("encode results", "error", err)
		os.Exit(1)
	}

	if result.Partial {
		slog.Warn("crawl hit its deadline", "extracted", len(result.Products), "total", result.Total)
	}
}

func buildSink(cfg config.SinkConfig) (sink.Sink, error) {
	switch cfg.Driver {
	case "postgres":
		return sink.NewPostgres(cfg)
	case "", "log":
		return sink.NewLog(), nil
	default:
		slog.Warn("unknown sink driver, using log", "driver", cfg.Driver)
		return sink.NewLog(), nil
	}
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
