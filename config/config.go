package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig Config
	once         sync.Once
)

// Config 扁平化配置结构体
type Config struct {
	// Server
	ServerHost         string        `mapstructure:"server_host"`
	ServerPort         int           `mapstructure:"server_port"`
	ServerDomain       string        `mapstructure:"server_domain"`
	ServerReadTimeout  time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout  time.Duration `mapstructure:"server_idle_timeout"`
	LogLevel           string        `mapstructure:"log_level"`

	// Database
	DBType            string `mapstructure:"db_type"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBSSLMode         string `mapstructure:"db_ssl_mode"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// Cache
	CacheType          string        `mapstructure:"cache_type"`
	CacheRedisAddr     string        `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string        `mapstructure:"cache_redis_password"`
	CacheRedisDB       int           `mapstructure:"cache_redis_db"`
	CacheOpTimeout     time.Duration `mapstructure:"cache_op_timeout"`
	CacheArtifactTTL   time.Duration `mapstructure:"cache_artifact_ttl"`
	CacheListingTTL    time.Duration `mapstructure:"cache_listing_ttl"`
	CacheRegistryLimit int           `mapstructure:"cache_registry_limit"`

	// Blob storage
	StorageType           string        `mapstructure:"storage_type"`
	StorageLocalPath      string        `mapstructure:"storage_local_path"`
	StorageMinioEndpoint  string        `mapstructure:"storage_minio_endpoint"`
	StorageMinioAccessKey string        `mapstructure:"storage_minio_access_key"`
	StorageMinioSecretKey string        `mapstructure:"storage_minio_secret_key"`
	StorageMinioBucket    string        `mapstructure:"storage_minio_bucket"`
	StorageMinioRegion    string        `mapstructure:"storage_minio_region"`
	StorageMinioUseSSL    bool          `mapstructure:"storage_minio_use_ssl"`
	StorageURLTTL         time.Duration `mapstructure:"storage_url_ttl"`

	// Identity
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTIssuer string        `mapstructure:"jwt_issuer"`
	JWTTTL    time.Duration `mapstructure:"jwt_ttl"`

	// JWTSecretGenerated 未配置密钥时随机生成，重启后令牌失效
	JWTSecretGenerated bool `mapstructure:"-"`

	// Rendering
	RenderTimeout time.Duration `mapstructure:"render_timeout"`

	// Rate limiting
	RateLimitApiRPS     float64       `mapstructure:"rate_limit_api_rps"`
	RateLimitApiBurst   int           `mapstructure:"rate_limit_api_burst"`
	RateLimitBlobRPS    float64       `mapstructure:"rate_limit_blob_rps"`
	RateLimitBlobBurst  int           `mapstructure:"rate_limit_blob_burst"`
	RateLimitExpireTime time.Duration `mapstructure:"rate_limit_expire_time"`
	MaxConcurrency      int64         `mapstructure:"max_concurrency"`
}

// InitConfig Initialize configuration
func InitConfig() {
	once.Do(func() {
		loadConfig()
	})
}

func Get() *Config {
	return &globalConfig
}

// loadConfig Core configuration loading
func loadConfig() {
	setDefaults()

	configFile := viper.GetString("config_file_path")
	if configFile == "" {
		configFile = ".env"
		viper.SetConfigType("env")
	}
	viper.SetConfigFile(configFile)

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Info: config file %s not found, using defaults and environment variables\n", configFile)
	} else {
		fmt.Fprintf(os.Stderr, "Info: Loaded configuration from %s\n", configFile)
	}

	viper.AutomaticEnv()
	for _, key := range viper.AllKeys() {
		_ = viper.BindEnv(key)
	}

	if err := viper.Unmarshal(&globalConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: Unable to unmarshal config, %v\n", err)
		os.Exit(1)
	}

	globalConfig.normalize()
}

// setDefaults 设置默认值
func setDefaults() {
	viper.SetDefault("server_host", "127.0.0.1")
	viper.SetDefault("server_port", 3000)
	viper.SetDefault("server_domain", "")
	viper.SetDefault("server_read_timeout", "15s")
	viper.SetDefault("server_write_timeout", "90s")
	viper.SetDefault("server_idle_timeout", "120s")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("db_type", "sqlite")
	viper.SetDefault("db_host", "localhost")
	viper.SetDefault("db_port", 5432)
	viper.SetDefault("db_username", "postgres")
	viper.SetDefault("db_password", "")
	viper.SetDefault("db_name", "fractals")
	viper.SetDefault("db_ssl_mode", "disable")
	viper.SetDefault("db_file_path", "./data/fractals.db")
	viper.SetDefault("db_max_open_conns", 50)
	viper.SetDefault("db_max_idle_conns", 10)
	viper.SetDefault("db_conn_max_lifetime", 3600)

	viper.SetDefault("cache_type", "memory")
	viper.SetDefault("cache_redis_addr", "localhost:6379")
	viper.SetDefault("cache_redis_password", "")
	viper.SetDefault("cache_redis_db", 0)
	viper.SetDefault("cache_op_timeout", "250ms")
	viper.SetDefault("cache_artifact_ttl", "1h")
	viper.SetDefault("cache_listing_ttl", "60s")
	viper.SetDefault("cache_registry_limit", 1024)

	viper.SetDefault("storage_type", "local")
	viper.SetDefault("storage_local_path", "./data/blobs")
	viper.SetDefault("storage_minio_endpoint", "")
	viper.SetDefault("storage_minio_access_key", "")
	viper.SetDefault("storage_minio_secret_key", "")
	viper.SetDefault("storage_minio_bucket", "fractals")
	viper.SetDefault("storage_minio_region", "")
	viper.SetDefault("storage_minio_use_ssl", false)
	viper.SetDefault("storage_url_ttl", "300s")

	viper.SetDefault("jwt_secret", "")
	viper.SetDefault("jwt_issuer", "fractal-gallery")
	viper.SetDefault("jwt_ttl", "1h")

	viper.SetDefault("render_timeout", "30s")

	viper.SetDefault("rate_limit_api_rps", 20.0)
	viper.SetDefault("rate_limit_api_burst", 40)
	viper.SetDefault("rate_limit_blob_rps", 100.0)
	viper.SetDefault("rate_limit_blob_burst", 200)
	viper.SetDefault("rate_limit_expire_time", "10m")
	viper.SetDefault("max_concurrency", 100)
}

// normalize 修正不合理的配置组合
func (c *Config) normalize() {
	if c.CacheListingTTL <= 0 {
		c.CacheListingTTL = 60 * time.Second
	}
	if c.CacheArtifactTTL <= 0 {
		c.CacheArtifactTTL = time.Hour
	}
	if c.StorageURLTTL <= 0 {
		c.StorageURLTTL = 300 * time.Second
	}
	// cached listing pages embed access URLs, so they must expire first
	if c.CacheListingTTL >= c.StorageURLTTL {
		c.CacheListingTTL = c.StorageURLTTL / 2
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = 30 * time.Second
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 100
	}
	if c.JWTSecret == "" {
		buf := make([]byte, 32)
		_, _ = rand.Read(buf)
		c.JWTSecret = hex.EncodeToString(buf)
		c.JWTSecretGenerated = true
	}
}

// Addr 返回监听地址，格式为 "host:port"
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 3000
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// BaseURL 返回基础 URL，用于生成本地 blob 链接
func (c *Config) BaseURL() string {
	if c.ServerDomain != "" {
		return c.ServerDomain
	}
	host := c.ServerHost
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.ServerPort)
}

var (
	Version    = "dev"
	CommitHash = ""
)

// IsDevelopment 判断是否为开发版本
func IsDevelopment() bool {
	return Version == "dev"
}
