package middleware

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/friedchicken888/cab432-a2/api/common"
	"github.com/friedchicken888/cab432-a2/utils"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

func (c *clientLimiter) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *clientLimiter) idle() time.Duration {
	return time.Since(time.Unix(0, c.lastSeen.Load()))
}

type IPRateLimiter struct {
	rps        float64       // 每秒请求数
	burst      int           // 令牌桶的容量
	expireTime time.Duration // 过期时间
	limiterMap *sync.Map
	stopChan   chan struct{}
}

// NewIPRateLimiter Create new IP-based rate limits
func NewIPRateLimiter(rps float64, burst int, expireTime time.Duration) *IPRateLimiter {
	limiter := &IPRateLimiter{
		rps:        rps,
		burst:      burst,
		expireTime: expireTime,
		limiterMap: &sync.Map{},
		stopChan:   make(chan struct{}),
	}

	// 启动后台清理 goroutine
	utils.SafeGo(limiter.cleanupStaleClients)

	return limiter
}

// Middleware Return a Gin middleware handler
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := getClientIP(c)

		val, ok := rl.limiterMap.Load(ip)
		if !ok {
			val, _ = rl.limiterMap.LoadOrStore(ip, &clientLimiter{
				limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.burst),
			})
		}

		client := val.(*clientLimiter)
		client.touch()

		if !client.limiter.Allow() {
			common.RespondErrorAbort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}

		c.Next()
	}
}

func (rl *IPRateLimiter) StopCleanup() {
	close(rl.stopChan)
}

func (rl *IPRateLimiter) cleanupStaleClients() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// 遍历 sync.Map，删除过期的条目
			rl.limiterMap.Range(func(key, value interface{}) bool {
				client := value.(*clientLimiter)
				if client.idle() > rl.expireTime {
					rl.limiterMap.Delete(key)
				}
				return true
			})
		case <-rl.stopChan:
			return
		}
	}
}

// getClientIP returns the caller's address. Forwarding headers are only
// honoured through gin's trusted proxy list.
func getClientIP(c *gin.Context) string {
	return c.ClientIP()
}
