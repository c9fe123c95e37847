// Package classifier decides which sitemaps in a sitemap index are likely
// to contain product pages. Implementations share one contract: given a
// list of candidate sitemap URLs, return the subset worth crawling.
package classifier

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopcrawl/shopcrawl/config"
	"github.com/shopcrawl/shopcrawl/llm"
)

// Classifier filters candidate sitemap URLs to those likely product-bearing.
type Classifier interface {
	Classify(ctx context.Context, urls []string) ([]string, error)
}

// Keyword lists for the heuristic. An URL containing an exclude keyword is
// rejected outright; otherwise it is accepted when it contains an include
// keyword.
var (
	includeKeywords = []string{
		"product", "item", "goods", "san-pham", "_products_", "catalog",
	}
	excludeKeywords = []string{
		"news", "blog", "page", "landing",
		"collection.xml", "collections.xml",
		"category", "categories", "tags",
	}
)

// Heuristic is the built-in keyword filter. It never fails.
type Heuristic struct{}

func (Heuristic) Classify(_ context.Context, urls []string) ([]string, error) {
	var accepted []string
	for _, u := range urls {
		lower := strings.ToLower(u)
		if containsAny(lower, excludeKeywords) {
			continue
		}
		if containsAny(lower, includeKeywords) {
			accepted = append(accepted, u)
		}
	}
	return accepted, nil
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// fallback wraps any classifier so that every error degrades to the
// keyword heuristic instead of propagating. A crawl must never abort
// because triage failed.
type fallback struct {
	inner Classifier
}

// WithFallback wraps a classifier with heuristic fallback on any error.
func WithFallback(inner Classifier) Classifier {
	return &fallback{inner: inner}
}

func (f *fallback) Classify(ctx context.Context, urls []string) ([]string, error) {
	result, err := f.inner.Classify(ctx, urls)
	if err != nil {
		slog.Warn("classifier failed, using heuristic fallback", "error", err, "candidates", len(urls))
		return Heuristic{}.Classify(ctx, urls)
	}
	return result, nil
}

// FromConfig builds the configured classifier. The LLM provider is always
// wrapped with heuristic fallback; unknown providers degrade to the
// heuristic with a warning.
func FromConfig(cfg config.ClassifierConfig) Classifier {
	switch cfg.Provider {
	case "llm":
		if cfg.APIKey == "" {
			slog.Warn("llm classifier selected but no API key set, using heuristic")
			return Heuristic{}
		}
		return WithFallback(NewLLM(llm.NewClient(nil), cfg))
	case "", "heuristic":
		return Heuristic{}
	default:
		slog.Warn("unknown classifier provider, using heuristic", "provider", cfg.Provider)
		return Heuristic{}
	}
}
