package sitemap

import (
	"regexp"
	"strings"
)

// Non-product path fragments: navigation, listing and account surfaces.
var nonProductFragments = []string{
	"/category", "/danh-muc", "/collection",
	"/blog", "/tin-tuc", "/news",
	"/search", "/cart", "/checkout", "/account",
	"/page", "/about", "/contact", "/help",
}

// Common product URL shapes across Vietnamese and international shops.
var productPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/san-pham/`),
	regexp.MustCompile(`/product/`),
	regexp.MustCompile(`/p/`),
	regexp.MustCompile(`-p\d+`),      // tiki style
	regexp.MustCompile(`/\d+\.html`), // numeric .html
	regexp.MustCompile(`-i\d+`),      // shopee/lazada style
}

var longNumericID = regexp.MustCompile(`\d{5,}`)

// IsProductURL reports whether a URL looks like a product page. It is a
// heuristic: listing/navigation fragments reject, known product path
// shapes accept, and a long numeric ID is treated as a weak accept.
func IsProductURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, fragment := range nonProductFragments {
		if strings.Contains(lower, fragment) {
			return false
		}
	}

	for _, pattern := range productPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}

	return longNumericID.MatchString(rawURL)
}
