package core

import (
	"github.com/friedchicken888/cab432-a2/api/common"
	blobsHandler "github.com/friedchicken888/cab432-a2/api/handler/blobs"
	fractalHandler "github.com/friedchicken888/cab432-a2/api/handler/fractal"
	galleryHandler "github.com/friedchicken888/cab432-a2/api/handler/gallery"
	historyHandler "github.com/friedchicken888/cab432-a2/api/handler/history"
	"github.com/friedchicken888/cab432-a2/api/middleware"
	"github.com/friedchicken888/cab432-a2/cache"
	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/database"
	"github.com/friedchicken888/cab432-a2/internal/auth"
	"github.com/friedchicken888/cab432-a2/internal/gallery"
	"github.com/friedchicken888/cab432-a2/internal/history"
	"github.com/friedchicken888/cab432-a2/internal/orchestrator"
	"github.com/friedchicken888/cab432-a2/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerVersion 版本信息
type ServerVersion struct {
	Version    string
	CommitHash string
}

// RouterDependencies 路由注册依赖
type RouterDependencies struct {
	DB           database.Provider
	Cache        cache.Provider
	Blobs        storage.Provider
	Tokens       middleware.TokenParser
	Orchestrator *orchestrator.Orchestrator
	Gallery      *gallery.Service
	History      *history.Service
	Gatherer     prometheus.Gatherer

	APIRateLimiter  *middleware.IPRateLimiter
	BlobRateLimiter *middleware.IPRateLimiter
	ServerVersion   ServerVersion
	Config          *config.Config
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, deps *RouterDependencies) {
	registerBasicRoutes(router, deps)
	registerBlobRoutes(router, deps)
	registerAPIRoutes(router, deps)
}

// registerBasicRoutes 注册基础路由
func registerBasicRoutes(router *gin.Engine, deps *RouterDependencies) {
	healthHandler := NewHealthHandler(deps.DB, deps.Cache, deps.Blobs)
	router.GET("/health", healthHandler.Handle)

	router.GET("/version", func(context *gin.Context) {
		common.RespondJSON(context, gin.H{
			"version": deps.ServerVersion.Version,
			"commit":  deps.ServerVersion.CommitHash,
		})
	})

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
}

// registerBlobRoutes serves signed links when blobs live on local disk.
func registerBlobRoutes(router *gin.Engine, deps *RouterDependencies) {
	local, ok := deps.Blobs.(*storage.LocalStorage)
	if !ok {
		return
	}
	h := blobsHandler.NewHandler(local)
	group := router.Group("/blobs")
	if deps.BlobRateLimiter != nil {
		group.Use(deps.BlobRateLimiter.Middleware())
	}
	group.GET("/*key", h.Get)
}

// registerAPIRoutes 注册 API 路由
func registerAPIRoutes(router *gin.Engine, deps *RouterDependencies) {
	fractals := fractalHandler.NewHandler(deps.Orchestrator)
	galleries := galleryHandler.NewHandler(deps.Gallery)
	histories := historyHandler.NewHandler(deps.History)

	apiGroup := router.Group("/api")
	apiGroup.Use(func(context *gin.Context) {
		context.Header("Cache-Control", "no-store")
		context.Next()
	})

	v1 := apiGroup.Group("/v1")
	if deps.APIRateLimiter != nil {
		v1.Use(deps.APIRateLimiter.Middleware())
	}
	v1.Use(middleware.Auth(deps.Tokens))
	{
		v1.GET("/fractal", fractals.GetFractal)     // GET /api/v1/fractal
		v1.GET("/gallery", galleries.List)          // GET /api/v1/gallery
		v1.DELETE("/gallery/:id", galleries.Delete) // DELETE /api/v1/gallery/{id}
		v1.GET("/history", histories.List)          // GET /api/v1/history

		adminGroup := v1.Group("/admin")
		adminGroup.Use(middleware.RequireRole(auth.RoleAdmin))
		{
			adminGroup.GET("/gallery", galleries.ListAll) // GET /api/v1/admin/gallery
			adminGroup.GET("/history", histories.ListAll) // GET /api/v1/admin/history
		}
	}
}
