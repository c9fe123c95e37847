package extractor

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reCategorySep = regexp.MustCompile(`\s*[|/>]\s*`)
	reAllDigits   = regexp.MustCompile(`^\d+$`)
)

var crumbSkip = map[string]bool{
	"home": true, "trang chủ": true, "all": true, "shop": true,
	"products": true, "sản phẩm": true,
}

// extractCategory resolves the product category from breadcrumb JSON-LD,
// breadcrumb markup, the URL path, product microdata, and category meta
// tags, in that order.
func (e *Extractor) extractCategory(doc *goquery.Document, pageURL string) string {
	if cat := categoryFromBreadcrumbLD(doc); cat != "" {
		return cleanCategory(cat)
	}
	if cat := categoryFromBreadcrumbHTML(doc); cat != "" {
		return cleanCategory(cat)
	}
	if cat := categoryFromURL(pageURL); cat != "" {
		return cleanCategory(cat)
	}
	if text := doc.Find(`[itemtype*="Product"] [itemprop="category"]`).First().Text(); strings.TrimSpace(text) != "" {
		return cleanCategory(text)
	}
	if content, exists := doc.Find(`meta[name*="category"]`).First().Attr("content"); exists {
		return cleanCategory(content)
	}
	return ""
}

type breadcrumbLD struct {
	Type     string `json:"@type"`
	Elements []struct {
		Name string `json:"name"`
		Item struct {
			Name string `json:"name"`
		} `json:"item"`
	} `json:"itemListElement"`
}

// categoryFromBreadcrumbLD reads a BreadcrumbList and takes the
// second-to-last crumb, the category level above the product itself.
func categoryFromBreadcrumbLD(doc *goquery.Document) string {
	var category string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var crumb breadcrumbLD
		if err := json.Unmarshal([]byte(s.Text()), &crumb); err != nil {
			return true
		}
		if !strings.EqualFold(crumb.Type, "BreadcrumbList") || len(crumb.Elements) < 2 {
			return true
		}
		el := crumb.Elements[len(crumb.Elements)-2]
		name := el.Name
		if name == "" {
			name = el.Item.Name
		}
		if name != "" && !crumbSkip[strings.ToLower(name)] {
			category = name
			return false
		}
		return true
	})
	return category
}

// categoryFromBreadcrumbHTML walks breadcrumb containers from the end,
// skipping the product crumb and generic roots.
func categoryFromBreadcrumbHTML(doc *goquery.Document) string {
	var category string
	doc.Find(`nav[class*="breadcrumb"], div[class*="breadcrumb"], ol[class*="breadcrumb"], ul[class*="breadcrumb"]`).
		EachWithBreak(func(_ int, container *goquery.Selection) bool {
			var items []string
			container.Find("a, li, span").Each(func(_ int, s *goquery.Selection) {
				if text := normalizeSpace(s.Text()); text != "" {
					items = append(items, text)
				}
			})
			if len(items) < 2 {
				return true
			}
			// Last crumb is the product title.
			for i := len(items) - 2; i >= 0; i-- {
				candidate := items[i]
				lower := strings.ToLower(candidate)
				if crumbSkip[lower] || reAllDigits.MatchString(candidate) || len(candidate) <= 2 {
					continue
				}
				category = candidate
				return false
			}
			return true
		})
	return category
}

// categoryFromURL treats the second-to-last path segment as a category
// slug: /may-loc-nuoc/aqua-pro-x2--s123 -> "May Loc Nuoc".
func categoryFromURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	var segments []string
	for _, seg := range strings.Split(u.Path, "/") {
		seg = strings.TrimSpace(seg)
		if seg == "" || crumbSkip[strings.ToLower(seg)] || seg == "product" {
			continue
		}
		segments = append(segments, seg)
	}
	if len(segments) < 2 {
		return ""
	}
	slug := segments[len(segments)-2]
	if len(slug) <= 2 || reAllDigits.MatchString(slug) {
		return ""
	}
	return slugToTitle(slug)
}

// cleanCategory normalizes separators and keeps the first comma-separated
// value when a tag list leaks in.
func cleanCategory(cat string) string {
	cat = normalizeSpace(cat)
	cat = reCategorySep.ReplaceAllString(cat, " ")
	if idx := strings.Index(cat, ","); idx > 0 {
		cat = cat[:idx]
	}
	return strings.TrimSpace(cat)
}
