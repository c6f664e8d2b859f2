package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type ProductCounter interface {
	Count(ctx context.Context) (int64, error)
}

// HealthHandler : sondes pour Docker et le load balancer, sans authentification.
type HealthHandler struct {
	application string
	ping        func(ctx context.Context) error
	products    ProductCounter
	log         *slog.Logger
}

func NewHealthHandler(application string, ping func(ctx context.Context) error, products ProductCounter, log *slog.Logger) *HealthHandler {
	return &HealthHandler{application: application, ping: ping, products: products, log: log}
}

// Health : GET /health, ne touche pas la base.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "UP",
		"application": h.application,
		"timestamp":   time.Now().UTC(),
	})
}

// Database : GET /health/db
func (h *HealthHandler) Database(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	start := time.Now()
	count, err := h.check(ctx)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		h.log.Error("❌ health check base de données", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"database":  "DOWN",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	h.log.Debug("health check base de données",
		slog.Int64("response_time_ms", elapsed), slog.Int64("product_count", count))
	c.JSON(http.StatusOK, gin.H{
		"database":     "UP",
		"responseTime": strconv.FormatInt(elapsed, 10) + "ms",
		"productCount": count,
		"timestamp":    time.Now().UTC(),
	})
}

func (h *HealthHandler) check(ctx context.Context) (int64, error) {
	if err := h.ping(ctx); err != nil {
		return 0, err
	}
	return h.products.Count(ctx)
}
