package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopcrawl/shopcrawl/config"
	"github.com/shopcrawl/shopcrawl/models"
)

func testFetcherConfig() config.FetcherConfig {
	return config.FetcherConfig{
		Timeout:         2 * time.Second,
		MaxRetries:      3,
		RetryBackoff:    time.Millisecond,
		AcceptBackoff:   time.Millisecond,
		PoolConnections: 4,
		UserAgent:       "test-agent",
		CurlPath:        "", // no subprocess tier in tests
		CurlTimeout:     time.Second,
		MaxBodyBytes:    1 << 20,
	}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("user agent: got %q", ua)
		}
		w.Write([]byte("<urlset></urlset>"))
	}))
	defer srv.Close()

	f := New(testFetcherConfig())
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "<urlset></urlset>" {
		t.Errorf("body: got %q", body)
	}
}

func TestFetch_RetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(testFetcherConfig())
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if body != "ok" {
		t.Errorf("body: got %q", body)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls: got %d, want 3 (two 429s then success)", got)
	}
}

func TestFetch_NoRetryOnPermanentStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(testFetcherConfig())
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected an error for HTTP 404")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls: got %d, want 1 (404 must not be retried)", got)
	}
}

func TestFetchWithAccepts_RejectsHTMLForXMLRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>Access denied</body></html>"))
	}))
	defer srv.Close()

	f := New(testFetcherConfig())

	// An explicit XML variant must not accept an HTML block page.
	if _, err := f.FetchWithAccepts(context.Background(), srv.URL, []string{"application/xml, text/xml, */*"}); err == nil {
		t.Error("expected an error for an HTML response to an XML request")
	}

	// No explicit Accept header means HTML is fine (product pages).
	body, err := f.FetchWithAccepts(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "Access denied") {
		t.Errorf("body: got %q", body)
	}
}

func TestFetchWithAccepts_CascadesOnNotAcceptable(t *testing.T) {
	var acceptsSeen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept := r.Header.Get("Accept")
		acceptsSeen = append(acceptsSeen, accept)
		if !strings.Contains(accept, "application/xml") {
			w.WriteHeader(http.StatusNotAcceptable)
			return
		}
		w.Write([]byte("<urlset></urlset>"))
	}))
	defer srv.Close()

	f := New(testFetcherConfig())
	body, err := f.FetchWithAccepts(context.Background(), srv.URL, DefaultAcceptVariants)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "<urlset></urlset>" {
		t.Errorf("body: got %q", body)
	}

	// First variant (no Accept header) must have been rejected before the
	// XML variant succeeded.
	if len(acceptsSeen) < 2 {
		t.Fatalf("accept cascade too short: %v", acceptsSeen)
	}
	if acceptsSeen[0] != "" {
		t.Errorf("first variant: got %q, want no Accept header", acceptsSeen[0])
	}
	if !strings.Contains(acceptsSeen[len(acceptsSeen)-1], "application/xml") {
		t.Errorf("winning variant: got %q", acceptsSeen[len(acceptsSeen)-1])
	}
}

func TestFetch_BodyCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 256)))
	}))
	defer srv.Close()

	cfg := testFetcherConfig()
	cfg.MaxBodyBytes = 100
	f := New(cfg)
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body) != 100 {
		t.Errorf("body length: got %d, want 100", len(body))
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	f := New(testFetcherConfig())
	if _, err := f.Fetch(ctx, srv.URL); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestFetch_TimeoutErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	cfg := testFetcherConfig()
	cfg.Timeout = 20 * time.Millisecond
	cfg.MaxRetries = 0
	f := New(cfg)

	_, err := f.Fetch(context.Background(), srv.URL)
	var crawlErr *models.CrawlError
	if !errors.As(err, &crawlErr) {
		t.Fatalf("got %T (%v), want *models.CrawlError", err, err)
	}
	if crawlErr.Code != models.ErrCodeFetchTimeout {
		t.Errorf("code: got %s, want %s", crawlErr.Code, models.ErrCodeFetchTimeout)
	}
}

func TestHostMemory(t *testing.T) {
	m := NewHostMemory(50 * time.Millisecond)

	if got := m.Get("shop.example.com"); got != "" {
		t.Errorf("empty memory: got %q", got)
	}

	m.Set("shop.example.com", tierCurl)
	if got := m.Get("shop.example.com"); got != tierCurl {
		t.Errorf("after set: got %q, want %q", got, tierCurl)
	}

	m.Delete("shop.example.com")
	if got := m.Get("shop.example.com"); got != "" {
		t.Errorf("after delete: got %q", got)
	}

	m.Set("shop.example.com", tierNative)
	time.Sleep(80 * time.Millisecond)
	if got := m.Get("shop.example.com"); got != "" {
		t.Errorf("after ttl expiry: got %q", got)
	}
}

func TestIsHTMLContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"text/html; charset=utf-8", true},
		{"application/xhtml+xml", true},
		{"application/xml", false},
		{"text/plain", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsHTMLContentType(tt.ct); got != tt.want {
			t.Errorf("IsHTMLContentType(%q) = %v, want %v", tt.ct, got, tt.want)
		}
	}
}
