package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"

	"github.com/shopcrawl/shopcrawl/config"
	"github.com/shopcrawl/shopcrawl/models"
)

// DefaultAcceptVariants is the ordered Accept-header cascade used for
// sitemap fetches. The empty string means "no explicit Accept header".
// Some origins answer 406/415 to generic clients and only serve XML when
// asked for it in a specific way.
var DefaultAcceptVariants = []string{
	"",
	"application/xml, text/xml, */*",
	"text/xml, application/xml, */*",
	"application/rss+xml, application/xml, text/xml, */*",
	"text/plain, */*; q=0.1",
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1 only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Replace h2 with http/1.1 only in the ALPN extension so the server
	// never negotiates HTTP/2 (which Go's http.Transport cannot handle
	// over a utls connection).
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// Fetcher issues GET requests over a pooled client with a Chrome TLS
// fingerprint, retries transient status codes, cascades through Accept
// header variants, and falls back to a curl subprocess as a last resort.
// A Fetcher is safe for concurrent use.
type Fetcher struct {
	cfg    config.FetcherConfig
	client *http.Client
	memory *HostMemory
}

// New creates a Fetcher from the given configuration.
func New(cfg config.FetcherConfig) *Fetcher {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("fetcher: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2:   false,
		MaxIdleConns:        cfg.PoolConnections,
		MaxIdleConnsPerHost: cfg.PoolConnections,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		memory: NewHostMemory(24 * time.Hour),
	}
}

// Fetch retrieves the URL body with the client's default headers.
// Failure is non-fatal by contract: callers get an empty body plus the
// error and decide whether to skip.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	return f.FetchWithAccepts(ctx, targetURL, nil)
}

// FetchWithAccepts tries each Accept-header variant in order, pausing
// briefly between variants. Each variant gets its own bounded retry loop
// for 429/5xx responses. After exhausting all variants, one subprocess
// fetch is attempted. A nil or empty variant list means a single attempt
// with no explicit Accept header.
func (f *Fetcher) FetchWithAccepts(ctx context.Context, targetURL string, accepts []string) (string, error) {
	if len(accepts) == 0 {
		accepts = []string{""}
	}

	host := hostOf(targetURL)

	// A host remembered as curl-only skips the native attempts entirely.
	if f.memory.Get(host) == tierCurl {
		body, err := f.fetchCurl(ctx, targetURL)
		if err == nil {
			return body, nil
		}
		f.memory.Delete(host)
		slog.Debug("host memory stale, retrying native fetch", "host", host, "error", err)
	}

	var lastErr error
	for i, accept := range accepts {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(f.cfg.AcceptBackoff):
			}
		}

		body, err := f.attempt(ctx, targetURL, accept)
		if err == nil {
			f.memory.Set(host, tierNative)
			return body, nil
		}
		lastErr = err
	}

	// Last resort: some origins behave differently under a different
	// client fingerprint.
	body, err := f.fetchCurl(ctx, targetURL)
	if err == nil {
		f.memory.Set(host, tierCurl)
		return body, nil
	}

	if lastErr == nil {
		lastErr = err
	}
	code := models.ErrCodeFetchFailed
	if errors.Is(lastErr, context.DeadlineExceeded) {
		code = models.ErrCodeFetchTimeout
	}
	return "", models.NewCrawlError(code,
		fmt.Sprintf("all fetch attempts failed for %s", targetURL), lastErr)
}

// attempt performs one GET with the given Accept header, retrying
// transient statuses up to MaxRetries with doubling backoff.
func (f *Fetcher) attempt(ctx context.Context, targetURL, accept string) (string, error) {
	backoff := f.cfg.RetryBackoff
	var lastErr error

	for try := 0; try <= f.cfg.MaxRetries; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		body, retryable, err := f.doRequest(ctx, targetURL, accept)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", lastErr
}

// doRequest performs a single GET. The second return value reports whether
// the failure is worth retrying (429/5xx or a transport error).
func (f *Fetcher) doRequest(ctx context.Context, targetURL, accept string) (string, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", false, fmt.Errorf("fetcher: build request: %w", err)
	}

	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,vi;q=0.8")
	req.Header.Set("Accept-Encoding", "identity")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("fetcher: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		retryable := isRetryableStatus(resp.StatusCode)
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", retryable, fmt.Errorf("fetcher: HTTP %d for %s", resp.StatusCode, targetURL)
	}

	// An origin answering an explicit XML request with HTML is serving a
	// block page or an error page, not the sitemap. Fail the variant so
	// the cascade moves on.
	if strings.Contains(accept, "xml") && IsHTMLContentType(resp.Header.Get("Content-Type")) {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", false, fmt.Errorf("fetcher: HTML response to XML request for %s", targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return "", true, fmt.Errorf("fetcher: read body: %w", err)
	}
	return string(body), false, nil
}

// isRetryableStatus reports whether a status code warrants an automatic retry.
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// hostOf parses the hostname from a URL string.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}

// IsHTMLContentType reports whether a Content-Type header looks like HTML.
func IsHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
