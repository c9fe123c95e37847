package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/shopcrawl/shopcrawl/config"
	"github.com/shopcrawl/shopcrawl/models"
)

// productRow is the persisted form of a product record. Images are stored
// as a JSON array in a text column to keep the schema driver-agnostic.
type productRow struct {
	URL           string  `gorm:"column:url;primaryKey"`
	Title         string  `gorm:"column:title"`
	Price         float64 `gorm:"column:price"`
	OriginalPrice float64 `gorm:"column:original_price"`
	Currency      string  `gorm:"column:currency"`
	SKU           string  `gorm:"column:sku"`
	Brand         string  `gorm:"column:brand"`
	Category      string  `gorm:"column:category"`
	Images        string  `gorm:"column:images;type:text"`
	Description   string  `gorm:"column:description;type:text"`
	Availability  string  `gorm:"column:availability"`

	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (productRow) TableName() string { return "products" }

// Postgres persists product records via upsert on the url column.
type Postgres struct {
	db        *gorm.DB
	batchSize int
}

// NewPostgres opens the database and migrates the products table.
func NewPostgres(cfg config.SinkConfig) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&productRow{}); err != nil {
		return nil, fmt.Errorf("migrate products table: %w", err)
	}
	return &Postgres{db: db, batchSize: cfg.BatchSize}, nil
}

// NewPostgresWithDB wraps an existing connection. Used by tests.
func NewPostgresWithDB(sqlDB *sql.DB, batchSize int) (*Postgres, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName:           "postgres",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("wrap connection: %w", err)
	}
	return &Postgres{db: db, batchSize: batchSize}, nil
}

func (p *Postgres) Upsert(ctx context.Context, records []*models.ProductRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]productRow, 0, len(records))
	now := time.Now()
	for _, rec := range records {
		images, _ := json.Marshal(rec.Images)
		rows = append(rows, productRow{
			URL:           rec.URL,
			Title:         rec.Title,
			Price:         rec.Price,
			OriginalPrice: rec.OriginalPrice,
			Currency:      rec.Currency,
			SKU:           rec.SKU,
			Brand:         rec.Brand,
			Category:      rec.Category,
			Images:        string(images),
			Description:   rec.Description,
			Availability:  rec.Availability,
			UpdatedAt:     now,
		})
	}

	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "price", "original_price", "currency", "sku",
			"brand", "category", "images", "description", "availability",
			"updated_at",
		}),
	}).CreateInBatches(rows, p.batchSize).Error
	if err != nil {
		return models.NewCrawlError(models.ErrCodeSinkFailure, "upsert products", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
