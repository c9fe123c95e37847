package models

// ExtractRequest is the payload for POST /api/v1/extract.
// It fetches a single product page and runs the extraction cascade on it.
type ExtractRequest struct {
	// URL is the product page to extract. Required.
	URL string `json:"url" binding:"required,url"`

	// CacheMaxAgeMs enables a cache lookup for responses younger than
	// this many milliseconds. 0 disables the cache.
	CacheMaxAgeMs int `json:"cache_max_age_ms,omitempty" binding:"omitempty,min=0"`
}

// ExtractResponse is the response for POST /api/v1/extract.
type ExtractResponse struct {
	Success bool           `json:"success"`
	Product *ProductRecord `json:"product,omitempty"`
	Cached  bool           `json:"cached,omitempty"`
	Error   *ErrorDetail   `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
