package models

// CrawlRequest is the payload for POST /api/v1/crawl.
type CrawlRequest struct {
	// URL is the base URL of the target site. Required.
	URL string `json:"url" binding:"required,url"`

	// MaxProducts caps the number of product pages extracted.
	// Default: 10000.
	MaxProducts int `json:"max_products,omitempty" binding:"omitempty,min=1"`

	// Workers overrides the extraction worker pool size.
	// Default: 40. Max: 100.
	Workers int `json:"workers,omitempty" binding:"omitempty,min=1,max=100"`

	// DeadlineSeconds bounds the whole crawl wall-clock time.
	// Default: 3600.
	DeadlineSeconds int `json:"deadline_seconds,omitempty" binding:"omitempty,min=1"`

	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// CrawlResponse is the immediate response for POST /api/v1/crawl.
type CrawlResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CrawlStatusResponse is the response for GET /api/v1/crawl/:id.
type CrawlStatusResponse struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	Completed int              `json:"completed"`
	Total     int              `json:"total"`
	Products  []*ProductRecord `json:"products,omitempty"`
	Error     *ErrorDetail     `json:"error,omitempty"`
}

// CrawlJob tracks an in-progress crawl. The job owns its product records
// until they are handed to the ingestion sink; there is no persistent
// identity across runs.
type CrawlJob struct {
	ID            string
	BaseURL       string
	Status        string // "processing", "completed", "partial", "failed"
	Total         int
	Completed     int
	Products      []*ProductRecord
	CreatedAt     int64 // unix timestamp
	WebhookURL    string
	WebhookSecret string
}

// Crawl job statuses.
const (
	CrawlStatusProcessing = "processing"
	CrawlStatusCompleted  = "completed"
	CrawlStatusPartial    = "partial"
	CrawlStatusFailed     = "failed"
)
