package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/friedchicken888/cab432-a2/api/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimiter caps the number of requests handled at once.
type ConcurrencyLimiter struct {
	sem  *semaphore.Weighted
	wait time.Duration
}

// NewConcurrencyLimiter 并发限制器。wait 为排队等待上限，0 表示立即拒绝
func NewConcurrencyLimiter(maxConcurrency int64, wait time.Duration) *ConcurrencyLimiter {
	return &ConcurrencyLimiter{
		sem:  semaphore.NewWeighted(maxConcurrency),
		wait: wait,
	}
}

// Middleware 返回 Gin 中间件
func (cl *ConcurrencyLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cl.acquire(c.Request.Context()) {
			common.RespondErrorAbort(c, http.StatusServiceUnavailable, "Server is busy, please try again later")
			return
		}
		defer cl.sem.Release(1)

		c.Next()
	}
}

func (cl *ConcurrencyLimiter) acquire(ctx context.Context) bool {
	if cl.sem.TryAcquire(1) {
		return true
	}
	if cl.wait <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, cl.wait)
	defer cancel()
	return cl.sem.Acquire(ctx, 1) == nil
}
