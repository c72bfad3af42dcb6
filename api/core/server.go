package core

import (
	"net/http"
	"time"

	"github.com/friedchicken888/cab432-a2/api/middleware"
	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/internal/app"
	"github.com/friedchicken888/cab432-a2/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// setupRouter 创建 gin 引擎并注册中间件和路由
func setupRouter(container *app.Container) (*gin.Engine, func()) {
	cfg := container.Config()
	if !config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(utils.Component("http")))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.BaseURL()},
		AllowMethods:     []string{"GET", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	_ = router.SetTrustedProxies(nil)

	router.Use(middleware.NewConcurrencyLimiter(cfg.MaxConcurrency, 0).Middleware())
	router.Use(middleware.Metrics(container.Metrics))

	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	blobRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitBlobRPS, cfg.RateLimitBlobBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		apiRateLimiter.StopCleanup()
		blobRateLimiter.StopCleanup()
	}

	RegisterRoutes(router, &RouterDependencies{
		DB:              container.Database.GetProvider(),
		Cache:           container.Cache.GetProvider(),
		Blobs:           container.Blobs,
		Tokens:          container.JWT,
		Orchestrator:    container.Orchestrator,
		Gallery:         container.Gallery,
		History:         container.History,
		Gatherer:        container.MetricsRegistry,
		APIRateLimiter:  apiRateLimiter,
		BlobRateLimiter: blobRateLimiter,
		ServerVersion:   ServerVersion{Version: config.Version, CommitHash: config.CommitHash},
		Config:          cfg,
	})

	return router, cleanup
}

// StartServer 创建 http.Server
func StartServer(container *app.Container) (*http.Server, func()) {
	cfg := container.Config()
	router, clean := setupRouter(container)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
