package crawler

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/shopcrawl/shopcrawl/config"
	"github.com/shopcrawl/shopcrawl/models"
)

// Fetcher retrieves page bodies.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (string, error)
}

// Resolver expands a site root into product page URLs.
type Resolver interface {
	Resolve(ctx context.Context, baseURL string) ([]string, error)
}

// Extractor turns a fetched page into a product record.
type Extractor interface {
	Extract(pageURL, html string) *models.ProductRecord
}

// Crawler drives a full-site crawl: resolve the sitemap tree, then fetch
// and extract every product page through a bounded worker pool.
type Crawler struct {
	cfg       config.CrawlerConfig
	fetcher   Fetcher
	resolver  Resolver
	extractor Extractor
}

// Params override per-crawl limits. Zero values fall back to the
// configured defaults.
type Params struct {
	MaxProducts int
	Workers     int
	Deadline    time.Duration

	// OnProgress is invoked after each page finishes, successfully or not.
	OnProgress func(completed, total int)
}

// Result is the outcome of one crawl.
type Result struct {
	Products []*models.ProductRecord

	// Total is the number of product URLs dispatched.
	Total int

	// Partial is set when the deadline cut the crawl short.
	Partial bool
}

func New(cfg config.CrawlerConfig, fetcher Fetcher, resolver Resolver, extractor Extractor) *Crawler {
	return &Crawler{
		cfg:       cfg,
		fetcher:   fetcher,
		resolver:  resolver,
		extractor: extractor,
	}
}

// Crawl resolves baseURL's product pages and extracts them concurrently.
// On deadline expiry it returns the records collected so far with
// Partial set, without waiting for in-flight workers.
func (c *Crawler) Crawl(ctx context.Context, baseURL string, params Params) (*Result, error) {
	maxProducts := params.MaxProducts
	if maxProducts <= 0 || maxProducts > c.cfg.MaxProducts {
		maxProducts = c.cfg.MaxProducts
	}
	workers := params.Workers
	if workers <= 0 || workers > c.cfg.Workers {
		workers = c.cfg.Workers
	}
	deadline := params.Deadline
	if deadline <= 0 || deadline > c.cfg.Deadline {
		deadline = c.cfg.Deadline
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	start := time.Now()
	urls, err := c.resolver.Resolve(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	urls = dedupe(urls)
	if len(urls) > maxProducts {
		urls = urls[:maxProducts]
	}
	if len(urls) == 0 {
		slog.Warn("crawl found no product urls", "base_url", baseURL)
		return &Result{}, nil
	}

	slog.Info("crawl started",
		"base_url", baseURL,
		"urls", len(urls),
		"workers", workers,
	)

	var (
		mu        sync.Mutex
		products  []*models.ProductRecord
		completed int
	)

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, pageURL := range urls {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(pageURL string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			rec := c.crawlOne(ctx, pageURL)

			mu.Lock()
			if rec != nil {
				products = append(products, rec)
			}
			completed++
			done := completed
			mu.Unlock()

			if params.OnProgress != nil {
				params.OnProgress(done, len(urls))
			}
		}(pageURL)
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	result := &Result{Total: len(urls)}
	select {
	case <-finished:
	case <-ctx.Done():
		result.Partial = true
	}

	mu.Lock()
	result.Products = append(result.Products, products...)
	mu.Unlock()

	slog.Info("crawl finished",
		"base_url", baseURL,
		"products", len(result.Products),
		"total", result.Total,
		"partial", result.Partial,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return result, nil
}

// crawlOne fetches and extracts a single page. Per-page failures are
// logged and skipped so one bad page never fails the crawl.
func (c *Crawler) crawlOne(ctx context.Context, pageURL string) *models.ProductRecord {
	c.jitter(ctx)
	if ctx.Err() != nil {
		return nil
	}

	body, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		slog.Warn("page fetch failed", "url", pageURL, "error", err)
		return nil
	}

	rec := c.extractor.Extract(pageURL, body)
	if rec.Title == "" && rec.Price == 0 {
		slog.Warn("extraction yielded a degraded record", "url", pageURL,
			"error", models.NewCrawlError(models.ErrCodeExtraction, "no title or price found", nil))
	}
	return rec
}

// jitter sleeps a random interval to avoid hammering the origin in
// lockstep across the pool.
func (c *Crawler) jitter(ctx context.Context) {
	if c.cfg.JitterMax <= c.cfg.JitterMin {
		return
	}
	delay := c.cfg.JitterMin + time.Duration(rand.Int63n(int64(c.cfg.JitterMax-c.cfg.JitterMin)))
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

// dedupe keeps the first occurrence of each URL.
func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := urls[:0]
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
