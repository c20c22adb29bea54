package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerd/internal/infrastructure/storage/postgres"
)

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	db *postgres.Database
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *postgres.Database) *HealthHandler {
	return &HealthHandler{db: db}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness probe (is the service ready to accept traffic?).
// Surfaces the database lifecycle state: not-yet-connected and shutting-
// down both report unavailable, they are never papered over.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	state := h.db.State()
	if state != postgres.StateReady {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"database": "unhealthy: " + state.String(),
			},
		})
		return
	}

	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"database": "unhealthy: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"database": "healthy",
		},
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	info := gin.H{
		"app":     "ledgerd",
		"version": "0.1.0",
		"state":   h.db.State().String(),
	}

	if stats, err := h.db.Stats(); err == nil {
		info["database"] = map[string]any{
			"total_conns":    stats.TotalConns,
			"acquired_conns": stats.AcquiredConns,
			"idle_conns":     stats.IdleConns,
			"max_conns":      stats.MaxConns,
		}
	}

	c.JSON(http.StatusOK, info)
}
