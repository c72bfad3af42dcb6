// Package auth verifies caller identity from bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
)

// Identity is the verified caller handed to the core services.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

// IsAdmin reports whether the caller has the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// TokenConfig 保存 JWT 配置
type TokenConfig struct {
	Secret    []byte
	Issuer    string
	ExpiresIn time.Duration
}

// Claims JWT 令牌声明，sub 为用户 ID
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService JWT Token 服务
type JWTService struct {
	config TokenConfig
}

// NewJWTService 创建新的 JWT 服务
func NewJWTService(cfg TokenConfig) (*JWTService, error) {
	if len(cfg.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters long, got %d", len(cfg.Secret))
	}
	if cfg.ExpiresIn <= 0 {
		cfg.ExpiresIn = time.Hour
	}
	return &JWTService{config: cfg}, nil
}

// GenerateAccessToken 为身份签发访问令牌
func (s *JWTService) GenerateAccessToken(id Identity) (string, time.Time, error) {
	if id.UserID == "" {
		return "", time.Time{}, errors.New("user id is required")
	}
	if id.Role == "" {
		id.Role = RoleUser
	}
	if id.Role != RoleUser && id.Role != RoleAdmin {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrInvalidRole, id.Role)
	}

	now := time.Now()
	expiry := now.Add(s.config.ExpiresIn)
	claims := Claims{
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	return token, expiry, nil
}

// ParseToken 解析和验证 JWT 令牌
func (s *JWTService) ParseToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.config.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// ExtractIdentity 从令牌中提取调用者身份
func (s *JWTService) ExtractIdentity(tokenString string) (*Identity, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	role := claims.Role
	if role == "" {
		role = RoleUser
	}
	if role != RoleUser && role != RoleAdmin {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	return &Identity{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     role,
	}, nil
}
