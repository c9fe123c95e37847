package sink

import (
	"context"
	"log/slog"

	"github.com/shopcrawl/shopcrawl/models"
)

// Sink receives extracted product records. Implementations must upsert by
// URL: crawling the same site twice refreshes rows instead of duplicating
// them.
type Sink interface {
	Upsert(ctx context.Context, records []*models.ProductRecord) error
	Close() error
}

// Log writes records to the structured log. The default sink when no
// database is configured.
type Log struct{}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Upsert(_ context.Context, records []*models.ProductRecord) error {
	for _, rec := range records {
		slog.Info("product extracted",
			"url", rec.URL,
			"title", rec.Title,
			"price", rec.Price,
			"original_price", rec.OriginalPrice,
			"currency", rec.Currency,
			"sku", rec.SKU,
			"brand", rec.Brand,
			"category", rec.Category,
			"images", len(rec.Images),
			"availability", rec.Availability,
			"discounted", rec.HasDiscount(),
		)
	}
	return nil
}

func (l *Log) Close() error { return nil }
