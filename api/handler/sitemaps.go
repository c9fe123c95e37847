package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopcrawl/shopcrawl/models"
	"github.com/shopcrawl/shopcrawl/sitemap"
)

// PostSitemaps returns a handler for POST /api/v1/sitemaps.
//
// Runs sitemap resolution only: useful for previewing what a crawl would
// visit before committing to one.
func PostSitemaps(res *sitemap.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SitemapsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.SitemapsResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		urls, err := res.Resolve(c.Request.Context(), req.URL)
		if err != nil {
			c.JSON(http.StatusBadGateway, models.SitemapsResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeSitemapParse,
					Message: err.Error(),
				},
			})
			return
		}

		if req.ProductOnly {
			filtered := urls[:0]
			for _, u := range urls {
				if sitemap.IsProductURL(u) {
					filtered = append(filtered, u)
				}
			}
			urls = filtered
		}

		c.JSON(http.StatusOK, models.SitemapsResponse{
			Success: true,
			URLs:    urls,
			Total:   len(urls),
		})
	}
}
