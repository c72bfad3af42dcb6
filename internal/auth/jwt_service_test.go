package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("s", 32))

func newTestService(t *testing.T) *JWTService {
	t.Helper()
	svc, err := NewJWTService(TokenConfig{Secret: testSecret, Issuer: "fractal-gallery", ExpiresIn: time.Minute})
	require.NoError(t, err)
	return svc
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := newTestService(t)

	token, expiry, err := svc.GenerateAccessToken(Identity{UserID: "u-1", Username: "alice", Role: RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiry, 5*time.Second)

	id, err := svc.ExtractIdentity(token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{UserID: "u-1", Username: "alice", Role: RoleAdmin}, id)
	assert.True(t, id.IsAdmin())
}

func TestJWTService_DefaultRoleIsUser(t *testing.T) {
	svc := newTestService(t)
	token, _, err := svc.GenerateAccessToken(Identity{UserID: "u-2", Username: "bob"})
	require.NoError(t, err)

	id, err := svc.ExtractIdentity(token)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, id.Role)
	assert.False(t, id.IsAdmin())
}

func TestJWTService_Rejects(t *testing.T) {
	svc := newTestService(t)

	other, err := NewJWTService(TokenConfig{Secret: []byte(strings.Repeat("x", 32)), Issuer: "fractal-gallery"})
	require.NoError(t, err)
	forged, _, err := other.GenerateAccessToken(Identity{UserID: "u-1"})
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "fractal-gallery",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "fractal-gallery",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "root",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "fractal-gallery",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"forged":     forged,
		"expired":    expired,
		"no subject": noSubject,
		"garbage":    "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ExtractIdentity(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = svc.ExtractIdentity(badRole)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestNewJWTService_ShortSecret(t *testing.T) {
	_, err := NewJWTService(TokenConfig{Secret: []byte("short")})
	assert.Error(t, err)

	svc := newTestService(t)
	_, _, err = svc.GenerateAccessToken(Identity{UserID: "u", Role: "superuser"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}
