package core

import (
	"context"
	"net/http"
	"time"

	"github.com/friedchicken888/cab432-a2/cache"
	"github.com/friedchicken888/cab432-a2/database"
	"github.com/friedchicken888/cab432-a2/storage"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 3 * time.Second

// HealthHandler 健康检查处理器
type HealthHandler struct {
	db    database.Provider
	cache cache.Provider
	blobs storage.Provider
}

func NewHealthHandler(db database.Provider, c cache.Provider, blobs storage.Provider) *HealthHandler {
	return &HealthHandler{db: db, cache: c, blobs: blobs}
}

// Handle GET /health
func (h *HealthHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{
		"database": checkDatabaseHealth(ctx, h.db),
		"cache":    checkCacheHealth(ctx, h.cache),
		"storage":  checkStorageHealth(ctx, h.blobs),
	}

	httpStatus := http.StatusOK
	status := "ok"
	for _, result := range checks {
		if result != "ok" {
			httpStatus = http.StatusServiceUnavailable
			status = "degraded"
			break
		}
	}
	c.JSON(httpStatus, gin.H{
		"status": status,
		"uptime": time.Since(startTime).Round(time.Second).String(),
		"checks": checks,
	})
}

func checkDatabaseHealth(ctx context.Context, provider database.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Ping(ctx); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkCacheHealth(ctx context.Context, provider cache.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Health(ctx); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkStorageHealth(ctx context.Context, provider storage.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Health(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
