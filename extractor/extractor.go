// Package extractor turns one page of product HTML into a structured
// record using a layered cascade: JSON-LD structured data first, then meta
// tags, then pattern-based HTML scraping with a final catch-all numeric
// scan. Each stage only fills fields the prior stages left empty, so the
// richest source always wins.
package extractor

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shopcrawl/shopcrawl/config"
	"github.com/shopcrawl/shopcrawl/models"
)

// Extractor runs the field-extraction cascade. It is stateless and safe
// for concurrent use; Extract is a pure function of (url, html).
type Extractor struct {
	cfg config.ExtractorConfig
}

// New creates an Extractor from the given configuration.
func New(cfg config.ExtractorConfig) *Extractor {
	if cfg.DescriptionMaxLen <= 0 {
		cfg.DescriptionMaxLen = 5000
	}
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 5
	}
	if cfg.PriceMax <= 0 {
		cfg.PriceMax = 1e15
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "VND"
	}
	return &Extractor{cfg: cfg}
}

// Extract builds a ProductRecord from raw HTML. It always returns a
// record: failures degrade individual fields to empty/zero and are logged,
// never raised to the caller.
func (e *Extractor) Extract(pageURL, html string) *models.ProductRecord {
	rec := &models.ProductRecord{
		URL:      pageURL,
		Currency: e.cfg.DefaultCurrency,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		slog.Warn("extract: html parse failed", "url", pageURL, "error", err)
		return rec
	}

	// 1. JSON-LD Product schema.
	e.applyJSONLD(doc, rec)

	// 2. Meta-tag fallback for still-missing fields.
	e.applyMetaTags(doc, rec)

	// 3. SKU / brand pattern fallback.
	e.applySKUFallback(doc, pageURL, rec)
	e.applyBrandFallback(doc, rec)

	// 4. Price HTML fallback.
	if rec.Price == 0 {
		if price := e.priceFromHTML(doc); price > 0 {
			rec.Price = price
		}
	}

	// 5. Discount-pair detection always runs: a page can carry a
	// strikethrough original even when JSON-LD supplied the sale price.
	e.applyDiscountPairs(doc, rec)

	// 6. Aggressive numeric fallback. Known heuristic weakness: a page
	// with unrelated large numbers (phone numbers, IDs) in the plausible
	// range can misfire; only the range bounds guard against it.
	if rec.Price == 0 {
		if price := e.aggressiveNumericPrice(doc); price > 0 {
			rec.Price = price
		}
	}

	// 7. Original price from HTML, once a current price is known.
	if rec.Price > 0 && rec.OriginalPrice == 0 {
		if orig := e.originalPriceFromHTML(doc, rec.Price); orig > 0 {
			rec.OriginalPrice = orig
		}
	}

	// 8. Description sub-pipeline: always attempted, replaces the JSON-LD
	// description only when it finds something longer.
	if desc := e.extractDescription(doc, pageURL, html); len(desc) > len(rec.Description) {
		rec.Description = desc
	}
	rec.Description = e.cleanDescription(rec.Description)

	// 9. Category sub-pipeline.
	if rec.Category == "" {
		rec.Category = e.extractCategory(doc, pageURL)
	}

	// Sanitation: nothing negative or absurd escapes the extractor.
	rec.Price = e.sanitizePrice(rec.Price)
	rec.OriginalPrice = e.sanitizePrice(rec.OriginalPrice)
	if len(rec.Images) > e.cfg.MaxImages {
		rec.Images = rec.Images[:e.cfg.MaxImages]
	}

	// original_price >= price is expected but not enforced: flag, don't fix.
	if rec.Price > 0 && rec.OriginalPrice > 0 && rec.OriginalPrice < rec.Price {
		slog.Warn("extract: original price below current price",
			"url", pageURL, "price", rec.Price, "original_price", rec.OriginalPrice)
	}

	return rec
}

// sanitizePrice resets invalid values to 0 (unknown).
func (e *Extractor) sanitizePrice(v float64) float64 {
	if v < 0 || v >= e.cfg.PriceMax {
		return 0
	}
	return v
}

// mapAvailability converts a schema.org availability URL to its local
// label, passing unknown values through verbatim.
func mapAvailability(avail string) string {
	switch {
	case strings.Contains(avail, "InStock"):
		return models.AvailabilityInStock
	case strings.Contains(avail, "OutOfStock"):
		return models.AvailabilityOutOfStock
	case strings.Contains(avail, "PreOrder"):
		return models.AvailabilityPreOrder
	default:
		return avail
	}
}

// normalizeSpace collapses all whitespace runs to single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
