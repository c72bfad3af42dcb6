// Package app assembles the service from configuration.
package app

import (
	"errors"
	"fmt"

	"github.com/friedchicken888/cab432-a2/cache"
	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/database"
	artifactrepo "github.com/friedchicken888/cab432-a2/database/repo/artifacts"
	galleryrepo "github.com/friedchicken888/cab432-a2/database/repo/gallery"
	historyrepo "github.com/friedchicken888/cab432-a2/database/repo/history"
	"github.com/friedchicken888/cab432-a2/internal/artifacts"
	"github.com/friedchicken888/cab432-a2/internal/auth"
	"github.com/friedchicken888/cab432-a2/internal/fractal"
	"github.com/friedchicken888/cab432-a2/internal/gallery"
	"github.com/friedchicken888/cab432-a2/internal/gate"
	"github.com/friedchicken888/cab432-a2/internal/history"
	"github.com/friedchicken888/cab432-a2/internal/metrics"
	"github.com/friedchicken888/cab432-a2/internal/orchestrator"
	"github.com/friedchicken888/cab432-a2/storage"
	"github.com/friedchicken888/cab432-a2/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "fractal_gallery"

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config *config.Config

	Database *database.Factory
	Cache    *cache.Factory
	Blobs    storage.Provider

	MetricsRegistry *prometheus.Registry
	Metrics         *metrics.Collector

	JWT          *auth.JWTService
	Artifacts    *artifacts.Service
	Gallery      *gallery.Service
	History      *history.Service
	Orchestrator *orchestrator.Orchestrator
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{config: cfg}
}

func (c *Container) Config() *config.Config {
	return c.config
}

// InitDatabase opens the database only, for commands that need nothing else.
func (c *Container) InitDatabase() error {
	if c.Database != nil {
		return nil
	}
	db, err := database.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.Database = db
	return nil
}

// InitCache opens the cache only.
func (c *Container) InitCache() error {
	if c.Cache != nil {
		return nil
	}
	cf, err := cache.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	c.Cache = cf
	return nil
}

// Init builds every component.
func (c *Container) Init() error {
	log := utils.Component("app")
	cfg := c.config

	if err := c.InitDatabase(); err != nil {
		return err
	}
	if err := c.Database.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := c.InitCache(); err != nil {
		return err
	}

	blobs, err := storage.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Blobs = blobs

	c.MetricsRegistry = prometheus.NewRegistry()
	c.MetricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.NewCollector(MetricsNamespace, c.MetricsRegistry)

	if cfg.JWTSecretGenerated {
		log.Warn("jwt_secret not set, generated a random one; tokens will not survive a restart")
	}
	c.JWT, err = auth.NewJWTService(auth.TokenConfig{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
		ExpiresIn: cfg.JWTTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize jwt service: %w", err)
	}

	db := c.Database.GetProvider()
	layer := cache.NewLayer(c.Cache.GetProvider(), cfg.CacheOpTimeout, c.Metrics)
	listings := cache.NewListingCache(layer, c.Cache.GetRegistry(), cfg.CacheListingTTL)

	c.Artifacts = artifacts.NewService(artifactrepo.NewRepository(db), layer, cfg.CacheArtifactTTL)
	c.Gallery = gallery.NewService(galleryrepo.NewRepository(db), c.Artifacts, blobs, listings, cfg.StorageURLTTL, c.Metrics)
	c.History = history.NewService(historyrepo.NewRepository(db), blobs, cfg.StorageURLTTL)
	c.Orchestrator = orchestrator.New(
		c.Artifacts, c.Gallery, c.History, blobs,
		fractal.NewJuliaRenderer(0), gate.New(),
		orchestrator.Options{RenderTimeout: cfg.RenderTimeout, URLTTL: cfg.StorageURLTTL},
		c.Metrics,
	)

	log.Info("container initialized",
		zap.String("database", db.Name()),
		zap.String("cache", c.Cache.GetProvider().Name()),
		zap.String("storage", blobs.Name()))
	return nil
}

// Close 关闭所有资源
func (c *Container) Close() error {
	var errs []error
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if c.Database != nil {
		if err := c.Database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
