package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopcrawl/shopcrawl/config"
	"github.com/shopcrawl/shopcrawl/models"
)

type stubResolver struct {
	urls []string
	err  error
}

func (s *stubResolver) Resolve(context.Context, string) ([]string, error) {
	return s.urls, s.err
}

type stubFetcher struct {
	delay time.Duration
	calls int32
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "<html><body>" + url + "</body></html>", nil
}

type stubExtractor struct {
	calls int32
}

func (s *stubExtractor) Extract(pageURL, _ string) *models.ProductRecord {
	atomic.AddInt32(&s.calls, 1)
	return &models.ProductRecord{URL: pageURL, Title: "t"}
}

func testCrawlerConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		Workers:     4,
		MaxProducts: 1000,
		Deadline:    5 * time.Second,
		// Jitter zeroed: tests should not sleep.
	}
}

func urlsN(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://shop.example.com/p/%d", i)
	}
	return urls
}

// emptyExtractor simulates pages where the cascade finds nothing.
type emptyExtractor struct{}

func (emptyExtractor) Extract(pageURL, _ string) *models.ProductRecord {
	return &models.ProductRecord{URL: pageURL, Currency: "VND"}
}

func TestCrawl_FlagsDegradedRecords(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	c := New(testCrawlerConfig(), &stubFetcher{}, &stubResolver{urls: urlsN(3)}, emptyExtractor{})
	result, err := c.Crawl(context.Background(), "https://shop.example.com", Params{Workers: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Degraded records still count toward the result.
	if len(result.Products) != 3 {
		t.Errorf("products: got %d, want 3", len(result.Products))
	}
	if !strings.Contains(buf.String(), models.ErrCodeExtraction) {
		t.Errorf("expected a %s warning, log was: %s", models.ErrCodeExtraction, buf.String())
	}
}

func TestCrawl_ExtractsAll(t *testing.T) {
	f := &stubFetcher{}
	e := &stubExtractor{}
	c := New(testCrawlerConfig(), f, &stubResolver{urls: urlsN(20)}, e)

	result, err := c.Crawl(context.Background(), "https://shop.example.com", Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 20 {
		t.Errorf("total: got %d, want 20", result.Total)
	}
	if len(result.Products) != 20 {
		t.Errorf("products: got %d, want 20", len(result.Products))
	}
	if result.Partial {
		t.Error("unexpected partial result")
	}
}

func TestCrawl_DeduplicatesURLs(t *testing.T) {
	urls := []string{
		"https://shop.example.com/p/1",
		"https://shop.example.com/p/2",
		"https://shop.example.com/p/1",
		"https://shop.example.com/p/3",
		"https://shop.example.com/p/2",
	}
	f := &stubFetcher{}
	e := &stubExtractor{}
	c := New(testCrawlerConfig(), f, &stubResolver{urls: urls}, e)

	result, err := c.Crawl(context.Background(), "https://shop.example.com", Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 3 {
		t.Errorf("total: got %d, want 3 after dedup", result.Total)
	}
	if got := atomic.LoadInt32(&e.calls); got != 3 {
		t.Errorf("extractor calls: got %d, want 3", got)
	}
}

func TestCrawl_MaxProductsCap(t *testing.T) {
	f := &stubFetcher{}
	e := &stubExtractor{}
	c := New(testCrawlerConfig(), f, &stubResolver{urls: urlsN(50)}, e)

	result, err := c.Crawl(context.Background(), "https://shop.example.com", Params{MaxProducts: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 10 {
		t.Errorf("total: got %d, want 10", result.Total)
	}
	if len(result.Products) != 10 {
		t.Errorf("products: got %d, want 10", len(result.Products))
	}
}

func TestCrawl_DeadlineReturnsPartial(t *testing.T) {
	f := &stubFetcher{delay: 100 * time.Millisecond}
	e := &stubExtractor{}
	c := New(testCrawlerConfig(), f, &stubResolver{urls: urlsN(40)}, e)

	start := time.Now()
	result, err := c.Crawl(context.Background(), "https://shop.example.com", Params{
		Workers:  2,
		Deadline: 250 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Partial {
		t.Error("expected a partial result after the deadline")
	}
	if len(result.Products) >= 40 {
		t.Errorf("products: got %d, expected fewer than the full 40", len(result.Products))
	}
	// The supervisor must cut the crawl near the deadline instead of
	// draining the remaining work.
	if elapsed > 2*time.Second {
		t.Errorf("crawl ran %v past a 250ms deadline", elapsed)
	}
}

func TestCrawl_ResolverError(t *testing.T) {
	c := New(testCrawlerConfig(), &stubFetcher{}, &stubResolver{err: errors.New("dns failure")}, &stubExtractor{})
	if _, err := c.Crawl(context.Background(), "https://shop.example.com", Params{}); err == nil {
		t.Fatal("expected resolver error to propagate")
	}
}

func TestCrawl_EmptyResolution(t *testing.T) {
	c := New(testCrawlerConfig(), &stubFetcher{}, &stubResolver{}, &stubExtractor{})
	result, err := c.Crawl(context.Background(), "https://shop.example.com", Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 0 || len(result.Products) != 0 {
		t.Errorf("empty resolution should yield an empty result, got %+v", result)
	}
}

func TestCrawl_ProgressCallback(t *testing.T) {
	var calls, maxSeen int32
	c := New(testCrawlerConfig(), &stubFetcher{}, &stubResolver{urls: urlsN(5)}, &stubExtractor{})

	_, err := c.Crawl(context.Background(), "https://shop.example.com", Params{
		OnProgress: func(completed, total int) {
			atomic.AddInt32(&calls, 1)
			for {
				cur := atomic.LoadInt32(&maxSeen)
				if int32(completed) <= cur || atomic.CompareAndSwapInt32(&maxSeen, cur, int32(completed)) {
					break
				}
			}
			if total != 5 {
				t.Errorf("total in progress callback: got %d, want 5", total)
			}
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 5 {
		t.Errorf("progress calls: got %d, want 5", got)
	}
	if got := atomic.LoadInt32(&maxSeen); got != 5 {
		t.Errorf("max completed seen: got %d, want 5", got)
	}
}
