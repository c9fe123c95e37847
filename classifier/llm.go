package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopcrawl/shopcrawl/config"
	"github.com/shopcrawl/shopcrawl/llm"
	"github.com/shopcrawl/shopcrawl/models"
)

// LLM delegates sitemap triage to an OpenAI-compatible completion call.
// Always wrap it with WithFallback: quota exhaustion, timeouts and
// malformed responses must degrade to the heuristic.
type LLM struct {
	client *llm.Client
	cfg    config.ClassifierConfig
}

// NewLLM creates an LLM-backed classifier.
func NewLLM(client *llm.Client, cfg config.ClassifierConfig) *LLM {
	return &LLM{client: client, cfg: cfg}
}

// triageResult is the JSON shape the model is asked to return.
type triageResult struct {
	ProductSitemaps []string `json:"product_sitemaps"`
	Reasoning       string   `json:"reasoning"`
}

func (l *LLM) Classify(ctx context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	raw, err := l.client.CompleteJSON(ctx, buildTriagePrompt(urls), llm.Params{
		APIKey:  l.cfg.APIKey,
		Model:   l.cfg.Model,
		BaseURL: l.cfg.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	var result triageResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, models.NewCrawlError(models.ErrCodeClassifier, "malformed triage response", err)
	}

	// Only keep URLs that were actually in the candidate list; the model
	// occasionally invents entries.
	candidates := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		candidates[u] = struct{}{}
	}
	var accepted []string
	for _, u := range result.ProductSitemaps {
		if _, ok := candidates[u]; ok {
			accepted = append(accepted, u)
		}
	}

	slog.Debug("llm sitemap triage",
		"candidates", len(urls),
		"accepted", len(accepted),
		"reasoning", result.Reasoning,
	)
	return accepted, nil
}

// buildTriagePrompt asks the model to pick product-bearing sitemaps.
func buildTriagePrompt(urls []string) string {
	var b strings.Builder
	b.WriteString("You are an e-commerce sitemap analyzer.\n\n")
	b.WriteString("Here are sitemap URLs from a website:\n\n")
	for _, u := range urls {
		fmt.Fprintf(&b, "- %s\n", u)
	}
	b.WriteString(`
ANALYZE and RETURN only the sitemap URLs that likely contain PRODUCT PAGES.

Sitemaps that usually DON'T contain products:
- news, blog, pages, landings, collections (collection listing)
- category, tags

Sitemaps that usually contain products:
- product, item, goods, catalog
- collection_products (products in collection)

RETURN JSON format:
{
  "product_sitemaps": ["url1", "url2", ...],
  "reasoning": "brief explanation"
}`)
	return b.String()
}
