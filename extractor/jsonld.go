package extractor

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shopcrawl/shopcrawl/models"
)

// applyJSONLD scans all application/ld+json blocks for a schema.org
// Product object and fills the record from it. The first Product found
// wins; blocks that fail to parse are skipped.
func (e *Extractor) applyJSONLD(doc *goquery.Document, rec *models.ProductRecord) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		product, ok := findProduct(s.Text())
		if !ok {
			return true
		}

		rec.Title = stringField(product, "name")
		rec.SKU = stringField(product, "sku")
		rec.Description = stringField(product, "description")
		rec.Brand = nameOrString(product["brand"])
		rec.Category = nameOrString(product["category"])
		rec.Images = imageList(product["image"], e.cfg.MaxImages)

		if offer, ok := firstOffer(product["offers"]); ok {
			if price, ok := priceValue(offer["price"]); ok {
				rec.Price = price
			}
			if orig, ok := priceValue(offer["priceBefore"]); ok {
				rec.OriginalPrice = orig
			}
			if cur := stringField(offer, "priceCurrency"); cur != "" {
				rec.Currency = cur
			}
			if avail := stringField(offer, "availability"); avail != "" {
				rec.Availability = mapAvailability(avail)
			}
		}
		return false
	})
}

// findProduct parses a JSON-LD block and unwraps @graph or list wrappers
// looking for an object with @type Product.
func findProduct(raw string) (map[string]any, bool) {
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, false
	}

	switch v := data.(type) {
	case map[string]any:
		if isProduct(v) {
			return v, true
		}
		if graph, ok := v["@graph"].([]any); ok {
			return productInList(graph)
		}
	case []any:
		return productInList(v)
	}
	return nil, false
}

func productInList(items []any) (map[string]any, bool) {
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok && isProduct(obj) {
			return obj, true
		}
	}
	return nil, false
}

// isProduct accepts both a bare "Product" @type and the list form.
func isProduct(obj map[string]any) bool {
	switch t := obj["@type"].(type) {
	case string:
		return t == "Product"
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

// stringField returns a trimmed string value for a key, or "".
func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// nameOrString handles schema values that are either a plain string or an
// object carrying a "name" (Brand, Thing, ...).
func nameOrString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case map[string]any:
		return stringField(val, "name")
	}
	return ""
}

// imageList handles the three shapes schema.org allows for "image":
// a single URL string, a list of URL strings, or a list of ImageObjects.
func imageList(v any, max int) []string {
	var urls []string
	switch val := v.(type) {
	case string:
		if val != "" {
			urls = append(urls, val)
		}
	case []any:
		for _, item := range val {
			switch img := item.(type) {
			case string:
				if img != "" {
					urls = append(urls, img)
				}
			case map[string]any:
				if u := stringField(img, "url"); u != "" {
					urls = append(urls, u)
				}
			}
			if len(urls) >= max {
				break
			}
		}
	}
	if len(urls) > max {
		urls = urls[:max]
	}
	return urls
}

// firstOffer unwraps "offers" to a single offer object (first element when
// it is a list).
func firstOffer(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case []any:
		if len(val) > 0 {
			if obj, ok := val[0].(map[string]any); ok {
				return obj, true
			}
		}
	}
	return nil, false
}

// priceValue converts a JSON-LD price (number or separator-laden string)
// to a float.
func priceValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, val > 0
	case string:
		if price, ok := parsePriceString(val); ok {
			return price, true
		}
	}
	return 0, false
}
