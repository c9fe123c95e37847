package models

// Availability values mapped from schema.org offer availability URLs.
// Anything unrecognized is passed through verbatim.
const (
	AvailabilityInStock    = "Còn hàng"
	AvailabilityOutOfStock = "Hết hàng"
	AvailabilityPreOrder   = "Đặt trước"
)

// ProductRecord is one extracted product page. The URL is the unique key
// within a crawl. A price or original price of 0 means unknown.
type ProductRecord struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"original_price"`
	Currency      string   `json:"currency"`
	SKU           string   `json:"sku,omitempty"`
	Brand         string   `json:"brand,omitempty"`
	Category      string   `json:"category,omitempty"`
	Images        []string `json:"images,omitempty"`
	Description   string   `json:"description,omitempty"`
	Availability  string   `json:"availability,omitempty"`
}

// HasDiscount reports whether the record carries a plausible sale pair.
// original_price >= price is expected but not enforced; callers that care
// about violations should flag, not fix them.
func (p *ProductRecord) HasDiscount() bool {
	return p.Price > 0 && p.OriginalPrice > p.Price
}

// SitemapEntry is a sitemap discovered during resolution. Entries are
// consumed immediately and never persisted.
type SitemapEntry struct {
	URL   string
	Kind  string // "index" or "urlset"
	Depth int
}

// Sitemap entry kinds.
const (
	SitemapKindIndex  = "index"
	SitemapKindURLSet = "urlset"
)
