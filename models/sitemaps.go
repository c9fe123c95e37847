package models

// SitemapsRequest is the payload for POST /api/v1/sitemaps.
// It runs sitemap resolution only, without extracting any pages.
type SitemapsRequest struct {
	// URL is the base URL of the target site. Required.
	URL string `json:"url" binding:"required,url"`

	// ProductOnly filters the result through the product-URL heuristic.
	ProductOnly bool `json:"product_only,omitempty"`
}

// SitemapsResponse is the response for POST /api/v1/sitemaps.
type SitemapsResponse struct {
	Success bool         `json:"success"`
	URLs    []string     `json:"urls"`
	Total   int          `json:"total"`
	Error   *ErrorDetail `json:"error,omitempty"`
}
