package storage

import (
	"fmt"

	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/utils"
	"go.uber.org/zap"
)

// NewProvider 根据配置创建存储提供者
func NewProvider(cfg *config.Config) (Provider, error) {
	log := utils.Component("storage")

	switch cfg.StorageType {
	case "", "local":
		p, err := NewLocalStorage(cfg.StorageLocalPath, cfg.BaseURL(), []byte(cfg.JWTSecret))
		if err != nil {
			return nil, err
		}
		log.Info("using local storage", zap.String("path", cfg.StorageLocalPath))
		return p, nil

	case "minio", "s3":
		p, err := NewMinioStorage(MinioConfig{
			Endpoint:        cfg.StorageMinioEndpoint,
			AccessKeyID:     cfg.StorageMinioAccessKey,
			SecretAccessKey: cfg.StorageMinioSecretKey,
			BucketName:      cfg.StorageMinioBucket,
			Region:          cfg.StorageMinioRegion,
			UseSSL:          cfg.StorageMinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		log.Info("using minio storage", zap.String("endpoint", cfg.StorageMinioEndpoint), zap.String("bucket", cfg.StorageMinioBucket))
		return p, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}
