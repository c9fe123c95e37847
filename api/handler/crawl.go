package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shopcrawl/shopcrawl/crawler"
	"github.com/shopcrawl/shopcrawl/models"
	"github.com/shopcrawl/shopcrawl/sink"
	"github.com/shopcrawl/shopcrawl/webhook"
)

// crawlStore holds all in-flight and completed crawl jobs.
var crawlStore sync.Map

func init() {
	// Background goroutine to expire crawl jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			crawlStore.Range(func(key, value any) bool {
				job := value.(*models.CrawlJob)
				if job.CreatedAt < cutoff {
					crawlStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// PostCrawl returns a handler for POST /api/v1/crawl.
//
// The crawl runs in the background; the response carries a job ID for
// polling GET /api/v1/crawl/:id. If a webhook URL is set, a
// crawl.completed or crawl.failed event is delivered when the job ends.
func PostCrawl(cr *crawler.Crawler, sk sink.Sink) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		jobID := "crawl-" + uuid.NewString()
		job := &models.CrawlJob{
			ID:            jobID,
			BaseURL:       req.URL,
			Status:        models.CrawlStatusProcessing,
			CreatedAt:     time.Now().Unix(),
			WebhookURL:    req.WebhookURL,
			WebhookSecret: req.WebhookSecret,
		}
		crawlStore.Store(jobID, job)

		go runCrawl(cr, sk, job, req)

		c.JSON(http.StatusOK, models.CrawlResponse{
			ID:     jobID,
			Status: models.CrawlStatusProcessing,
		})
	}
}

// GetCrawl returns a handler for GET /api/v1/crawl/:id.
func GetCrawl() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := crawlStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "crawl job not found",
				},
			})
			return
		}

		job := val.(*models.CrawlJob)
		c.JSON(http.StatusOK, models.CrawlStatusResponse{
			ID:        job.ID,
			Status:    job.Status,
			Completed: job.Completed,
			Total:     job.Total,
			Products:  job.Products,
		})
	}
}

// runCrawl executes the crawl, pushes results to the sink, and fires the
// webhook if one was requested.
func runCrawl(cr *crawler.Crawler, sk sink.Sink, job *models.CrawlJob, req models.CrawlRequest) {
	params := crawler.Params{
		MaxProducts: req.MaxProducts,
		Workers:     req.Workers,
		Deadline:    time.Duration(req.DeadlineSeconds) * time.Second,
		OnProgress: func(completed, total int) {
			job.Completed = completed
			job.Total = total
		},
	}

	result, err := cr.Crawl(context.Background(), req.URL, params)
	if err != nil {
		job.Status = models.CrawlStatusFailed
		slog.Error("crawl job failed", "id", job.ID, "error", err)
		notifyCrawl(job, err)
		return
	}

	job.Products = result.Products
	job.Completed = len(result.Products)
	job.Total = result.Total
	if result.Partial {
		job.Status = models.CrawlStatusPartial
	} else {
		job.Status = models.CrawlStatusCompleted
	}

	if sk != nil && len(result.Products) > 0 {
		if err := sk.Upsert(context.Background(), result.Products); err != nil {
			slog.Error("sink upsert failed", "id", job.ID, "error", err)
		}
	}

	slog.Info("crawl job finished",
		"id", job.ID,
		"status", job.Status,
		"products", len(job.Products),
		"total", job.Total,
	)
	notifyCrawl(job, nil)
}

func notifyCrawl(job *models.CrawlJob, crawlErr error) {
	if job.WebhookURL == "" {
		return
	}

	event := &webhook.Event{
		JobID:     job.ID,
		Timestamp: time.Now().Unix(),
	}
	if crawlErr != nil {
		event.Type = webhook.EventCrawlFailed
		event.Data = gin.H{"base_url": job.BaseURL, "error": crawlErr.Error()}
	} else {
		event.Type = webhook.EventCrawlCompleted
		event.Data = gin.H{
			"base_url": job.BaseURL,
			"status":   job.Status,
			"products": len(job.Products),
			"total":    job.Total,
		}
	}
	webhook.DeliverAsync(job.WebhookURL, job.WebhookSecret, event)
}
