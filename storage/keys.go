package storage

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// KeyPrefix is the namespace of every rendered fractal blob.
const KeyPrefix = "fractals/"

// NewKey 生成新的 blob key，形如 fractals/{uuid}.png
func NewKey(contentType string) string {
	ext := ".png"
	if contentType != "image/png" {
		ext = ".bin"
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return KeyPrefix + uuid.NewString() + ext
}

// IsValidStoragePath 校验存储路径是否合法
func IsValidStoragePath(path string) bool {
	if path == "" {
		return false
	}

	// 不允许绝对路径
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return false
	}

	// 防止目录遍历
	if strings.Contains(path, "..") {
		return false
	}

	// 只允许安全字符
	for _, r := range path {
		if (r < 'a' || r > 'z') &&
			(r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') &&
			r != '-' && r != '_' && r != '.' && r != '/' {
			return false
		}
	}

	return true
}
