package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webagent/models"
)

// PoolReporter exposes browser page pool utilisation. *scraper.Scraper
// satisfies it.
type PoolReporter interface {
	Stats() models.PoolStats
}

// Health returns a handler for GET /api/v1/health.
//
// Reports pool utilisation and degrades status when > 80% of pages are
// active. pool is nil when the browser is disabled.
func Health(pool PoolReporter, startTime time.Time, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:  "healthy",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
		}
		if pool != nil {
			stats := pool.Stats()
			if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
				resp.Status = "degraded"
			}
			resp.PoolStats = &stats
		}
		c.JSON(http.StatusOK, resp)
	}
}
