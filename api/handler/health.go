package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/shopwalk/models"
)

// StatsProvider reports session usage. *scraper.Scraper satisfies it.
type StatsProvider interface {
	Stats() models.SessionStats
	Uptime() time.Duration
	TableVersion() string
}

// Health returns a handler for GET /api/v1/health.
//
// Status degrades while every session slot is taken.
func Health(sp StatsProvider, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sp.Stats()

		status := "healthy"
		if stats.MaxSessions > 0 && stats.ActiveSessions >= stats.MaxSessions {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       sp.Uptime().Round(time.Second).String(),
			SessionStats: stats,
			TableVersion: sp.TableVersion(),
			Version:      version,
		})
	}
}
