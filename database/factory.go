package database

import (
	"context"
	"fmt"

	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/database/models"
	"github.com/friedchicken888/cab432-a2/utils"
	"go.uber.org/zap"
)

// Factory 数据库工厂 - 负责创建和管理数据库提供者
type Factory struct {
	provider Provider
}

// NewFactory 创建新的数据库工厂
func NewFactory(cfg *config.Config) (*Factory, error) {
	provider, err := NewGormProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database provider: %w", err)
	}
	utils.Component("database").Info("database provider initialized", zap.String("type", provider.Name()))

	return &Factory{provider: provider}, nil
}

// NewFactoryWith 使用已有提供者创建工厂
func NewFactoryWith(provider Provider) *Factory {
	return &Factory{provider: provider}
}

// GetProvider 获取数据库提供者
func (f *Factory) GetProvider() Provider {
	return f.provider
}

// Close 关闭数据库连接
func (f *Factory) Close() error {
	if f.provider != nil {
		return f.provider.Close()
	}
	return nil
}

// Models 返回需要迁移的全部模型，fractals 必须先于引用它的表
func Models() []interface{} {
	return []interface{}{
		&models.Fractal{},
		&models.GalleryEntry{},
		&models.HistoryEntry{},
	}
}

// AutoMigrate 自动迁移数据库结构
func (f *Factory) AutoMigrate() error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}

	log := utils.Component("database")
	log.Info("running database auto migration")
	if err := f.provider.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto migrate database: %w", err)
	}
	log.Info("database auto migration completed")
	return nil
}

// Ping 检查数据库连接
func (f *Factory) Ping(ctx context.Context) error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}
	return f.provider.Ping(ctx)
}
