// Package sitemap discovers product-page URLs by probing canonical sitemap
// locations and recursively expanding sitemap indexes.
package sitemap

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/shopcrawl/shopcrawl/classifier"
	"github.com/shopcrawl/shopcrawl/config"
	"github.com/shopcrawl/shopcrawl/fetcher"
	"github.com/shopcrawl/shopcrawl/models"
)

// Fetcher is the fetch capability the resolver needs.
type Fetcher interface {
	FetchWithAccepts(ctx context.Context, url string, accepts []string) (string, error)
}

// Resolver turns a base URL into an ordered list of candidate product-page
// URLs. Resolution is sequential; malformed sitemaps are logged and
// skipped, never fatal to the whole run.
type Resolver struct {
	cfg        config.ResolverConfig
	fetcher    Fetcher
	classifier classifier.Classifier
}

// NewResolver creates a Resolver. The classifier is wrapped with heuristic
// fallback, so classification errors never propagate out of resolution.
func NewResolver(cfg config.ResolverConfig, f Fetcher, c classifier.Classifier) *Resolver {
	if c == nil {
		c = classifier.Heuristic{}
	}
	return &Resolver{
		cfg:        cfg,
		fetcher:    f,
		classifier: classifier.WithFallback(c),
	}
}

// Resolve probes the canonical sitemap paths in order and returns the URLs
// found under the first path that yields any. If every path comes up
// empty, robots.txt Sitemap directives are tried before giving up.
func (r *Resolver) Resolve(ctx context.Context, baseURL string) ([]string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return nil, models.NewCrawlError(models.ErrCodeInvalidInput,
			fmt.Sprintf("invalid base URL %q", baseURL), err)
	}
	origin := parsed.Scheme + "://" + parsed.Host

	for _, path := range r.cfg.SitemapPaths {
		sitemapURL := origin + path

		urls := r.resolveOne(ctx, sitemapURL, 0)
		if len(urls) > 0 {
			slog.Info("sitemap resolved", "sitemap", sitemapURL, "urls", len(urls))
			return urls, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	// No canonical path worked; fall back to robots.txt directives.
	for _, sitemapURL := range r.robotsSitemaps(ctx, origin) {
		urls := r.resolveOne(ctx, sitemapURL, 0)
		if len(urls) > 0 {
			slog.Info("sitemap resolved via robots.txt", "sitemap", sitemapURL, "urls", len(urls))
			return urls, nil
		}
	}

	slog.Warn("no sitemap found", "base_url", baseURL)
	return nil, nil
}

// resolveOne fetches and expands a single sitemap URL. Indexes recurse up
// to the depth bound; only the root index's children pass through the
// classifier, since nested indexes are already triaged by their parent.
func (r *Resolver) resolveOne(ctx context.Context, sitemapURL string, depth int) []string {
	if depth > r.cfg.MaxDepth {
		slog.Debug("sitemap depth bound reached", "sitemap", sitemapURL, "depth", depth)
		return nil
	}

	content, err := r.fetcher.FetchWithAccepts(ctx, sitemapURL, fetcher.DefaultAcceptVariants)
	if err != nil || content == "" {
		slog.Debug("sitemap fetch failed", "sitemap", sitemapURL, "error", err)
		return nil
	}

	if IsTruncated(content) {
		slog.Warn("sitemap body looks truncated (does not end in '>')",
			"sitemap", sitemapURL, "bytes", len(content))
	}

	kind, locs, err := Parse(content)
	if err != nil {
		slog.Warn("sitemap parse failed, skipping",
			"sitemap", sitemapURL, "error", truncateErr(err))
		return nil
	}

	entry := models.SitemapEntry{URL: sitemapURL, Kind: kind, Depth: depth}
	slog.Debug("sitemap parsed", "sitemap", entry.URL, "kind", entry.Kind, "depth", entry.Depth, "locs", len(locs))

	if kind == models.SitemapKindURLSet {
		return locs
	}

	children := locs
	if depth == 0 {
		accepted, cerr := r.classifier.Classify(ctx, children)
		if cerr != nil {
			// The fallback wrapper makes this unreachable, but a
			// classifier error must never kill resolution.
			slog.Warn("classifier error after fallback, accepting heuristic subset", "error", cerr)
			accepted, _ = classifier.Heuristic{}.Classify(ctx, children)
		}
		slog.Info("sitemap index triaged",
			"sitemap", sitemapURL, "children", len(children), "accepted", len(accepted))
		children = accepted
	}

	var urls []string
	for _, child := range children {
		urls = append(urls, r.resolveOne(ctx, child, depth+1)...)
		if ctx.Err() != nil {
			break
		}
	}
	return urls
}

// robotsSitemaps fetches robots.txt and extracts Sitemap: directives.
func (r *Resolver) robotsSitemaps(ctx context.Context, origin string) []string {
	content, err := r.fetcher.FetchWithAccepts(ctx, origin+"/robots.txt", nil)
	if err != nil || content == "" {
		return nil
	}

	var sitemaps []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > len("sitemap:") && strings.EqualFold(line[:len("sitemap:")], "sitemap:") {
			if sitemapURL := strings.TrimSpace(line[len("sitemap:"):]); sitemapURL != "" {
				sitemaps = append(sitemaps, sitemapURL)
			}
		}
	}
	return sitemaps
}

// truncateErr shortens an error message for log lines.
func truncateErr(err error) string {
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
