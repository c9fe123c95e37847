package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shopcrawl/shopcrawl/models"
)

var (
	reSKUInURL  = regexp.MustCompile(`--s(\d+)`)
	reSKULabel  = regexp.MustCompile(`(?i)SKU[:|\s]`)
	reSKUDigits = regexp.MustCompile(`\d+`)

	reBrandClass = regexp.MustCompile(`(?i)brand`)

	// ALL-CAPS or CamelCase leading token, the shape brand names take
	// at the start of a product title ("SAMSUNG Galaxy...", "AquaLife...").
	reBrandToken = regexp.MustCompile(`^([A-Z]{2,}|[A-Z][a-z]+[A-Z][A-Za-z]*)$`)
)

// applyMetaTags fills gaps from Open Graph and product meta tags. Runs
// after JSON-LD, so it only touches fields still empty.
func (e *Extractor) applyMetaTags(doc *goquery.Document, rec *models.ProductRecord) {
	if rec.Title == "" {
		if v := metaContent(doc, `meta[property="og:title"]`); v != "" {
			rec.Title = normalizeSpace(v)
		}
	}

	if len(rec.Images) == 0 {
		if v := metaContent(doc, `meta[property="og:image"]`); v != "" {
			rec.Images = append(rec.Images, v)
		}
	}

	if rec.Price == 0 {
		if v := metaContent(doc, `meta[property="product:price:amount"]`); v != "" {
			if price, ok := parsePriceString(v); ok {
				rec.Price = price
			}
		}
	}

	if rec.Title == "" {
		rec.Title = normalizeSpace(doc.Find("title").First().Text())
	}
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// applySKUFallback tries the URL slug, itemprop markup, labelled text, and
// data attributes, in that order. Vietnamese storefronts commonly encode
// the SKU as a "--s12345" URL suffix.
func (e *Extractor) applySKUFallback(doc *goquery.Document, pageURL string, rec *models.ProductRecord) {
	if rec.SKU != "" {
		return
	}

	if m := reSKUInURL.FindStringSubmatch(pageURL); m != nil {
		rec.SKU = m[1]
		return
	}

	if text := doc.Find(`[itemprop="sku"]`).First().Text(); strings.TrimSpace(text) != "" {
		rec.SKU = normalizeSpace(text)
		return
	}

	var fromLabel string
	doc.Find("span, div, p, li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !reSKULabel.MatchString(text) {
			return true
		}
		if digits := reSKUDigits.FindString(text); digits != "" {
			fromLabel = digits
			return false
		}
		return true
	})
	if fromLabel != "" {
		rec.SKU = fromLabel
		return
	}

	if v, exists := doc.Find("[data-sku]").First().Attr("data-sku"); exists && strings.TrimSpace(v) != "" {
		rec.SKU = strings.TrimSpace(v)
	}
}

// applyBrandFallback looks for brand markup, then guesses from the first
// title token when it looks like a brand name.
func (e *Extractor) applyBrandFallback(doc *goquery.Document, rec *models.ProductRecord) {
	if rec.Brand != "" {
		return
	}

	if text := doc.Find(`[itemprop="brand"]`).First().Text(); strings.TrimSpace(text) != "" {
		rec.Brand = normalizeSpace(text)
		return
	}

	var fromClass string
	doc.Find("a, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !reBrandClass.MatchString(class) {
			return true
		}
		text := normalizeSpace(s.Text())
		if text != "" && len(text) < 50 {
			fromClass = text
			return false
		}
		return true
	})
	if fromClass != "" {
		rec.Brand = fromClass
		return
	}

	if rec.Title != "" {
		fields := strings.Fields(rec.Title)
		if len(fields) > 0 && reBrandToken.MatchString(fields[0]) {
			rec.Brand = fields[0]
		}
	}
}

// slugToTitle turns a URL path segment into display text:
// "may-loc-nuoc" -> "May Loc Nuoc".
func slugToTitle(slug string) string {
	slug, _ = url.PathUnescape(slug)
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
