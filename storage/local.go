package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken 访问令牌无效或过期
var ErrInvalidToken = errors.New("invalid blob access token")

// LocalStorage 本地文件存储实现。访问链接指向本服务的 /blobs 路由，
// 由短期 HS256 令牌授权
type LocalStorage struct {
	absBasePath string
	baseURL     string
	secret      []byte
}

// NewLocalStorage 创建本地存储提供者
func NewLocalStorage(basePath, baseURL string, secret []byte) (*LocalStorage, error) {
	if len(secret) == 0 {
		return nil, errors.New("local storage requires a signing secret")
	}
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory '%s': %w", absPath, err)
	}

	testFile := filepath.Join(absPath, ".write_test_"+strconv.FormatInt(time.Now().UnixNano(), 10))
	f, err := os.Create(testFile)
	if err != nil {
		return nil, fmt.Errorf("local storage directory '%s' is not writable: %w", absPath, err)
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	return &LocalStorage{
		absBasePath: absPath + string(os.PathSeparator),
		baseURL:     strings.TrimRight(baseURL, "/"),
		secret:      secret,
	}, nil
}

// resolve 校验 key 并返回绝对路径
func (s *LocalStorage) resolve(key string) (string, error) {
	if !IsValidStoragePath(key) {
		return "", fmt.Errorf("invalid storage path: %s", key)
	}
	fullPath := filepath.Join(s.absBasePath, key)
	// 防止目录遍历攻击
	if !strings.HasPrefix(fullPath, s.absBasePath) {
		return "", fmt.Errorf("invalid file path, potential directory traversal: %s", key)
	}
	return fullPath, nil
}

// Put 写入临时文件后重命名，读者不会看到半个文件
func (s *LocalStorage) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := NewKey(contentType)
	dstPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for '%s': %w", key, err)
	}

	tmp := dstPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write '%s': %w", key, err)
	}
	if err := os.Rename(tmp, dstPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to commit '%s': %w", key, err)
	}
	return key, nil
}

type blobClaims struct {
	jwt.RegisteredClaims
}

// AccessURL 返回带签名令牌的本地访问链接
func (s *LocalStorage) AccessURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := s.resolve(key); err != nil {
		return "", err
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, blobClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   key,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign blob url: %w", err)
	}
	return s.baseURL + "/blobs/" + key + "?token=" + url.QueryEscape(signed), nil
}

// Verify checks that token grants access to key.
func (s *LocalStorage) Verify(key, token string) error {
	var claims blobClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	if claims.Subject != key {
		return ErrInvalidToken
	}
	return nil
}

// Path 返回 key 对应的文件路径，供 HTTP 层零拷贝发送
func (s *LocalStorage) Path(key string) (string, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return fullPath, nil
}

// Delete 从本地存储删除文件
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete local file '%s': %w", key, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Health 检查存储健康状态
func (s *LocalStorage) Health(ctx context.Context) error {
	_, err := os.ReadDir(s.absBasePath)
	return err
}

func (s *LocalStorage) Name() string {
	return "local"
}
