package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopcrawl/shopcrawl/cache"
	"github.com/shopcrawl/shopcrawl/extractor"
	"github.com/shopcrawl/shopcrawl/fetcher"
	"github.com/shopcrawl/shopcrawl/models"
)

// Extract returns a handler for POST /api/v1/extract.
//
// Fetches one product page and runs the extraction cascade on it. With
// cache_max_age_ms set, a fresh enough cached record short-circuits the
// fetch entirely.
func Extract(f *fetcher.Fetcher, ex *extractor.Extractor, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ExtractResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		key := cache.Key(req.URL)
		if rec, hit := cc.Get(key, req.CacheMaxAgeMs); hit {
			c.JSON(http.StatusOK, models.ExtractResponse{
				Success: true,
				Product: rec,
				Cached:  true,
			})
			return
		}

		body, err := f.Fetch(c.Request.Context(), req.URL)
		if err != nil {
			c.JSON(http.StatusBadGateway, models.ExtractResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeFetchFailed,
					Message: err.Error(),
				},
			})
			return
		}

		rec := ex.Extract(req.URL, body)
		cc.Set(key, rec)

		c.JSON(http.StatusOK, models.ExtractResponse{
			Success: true,
			Product: rec,
		})
	}
}
