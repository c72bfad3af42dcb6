package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/friedchicken888/cab432-a2/internal/auth"
	"github.com/friedchicken888/cab432-a2/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type staticParser map[string]auth.Identity

func (p staticParser) ExtractIdentity(token string) (*auth.Identity, error) {
	id, ok := p[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &id, nil
}

var parser = staticParser{
	"user-token":  {UserID: "u1", Username: "alice", Role: auth.RoleUser},
	"admin-token": {UserID: "a1", Username: "root", Role: auth.RoleAdmin},
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(parser))
	router.GET("/", func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.UserID)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"no token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer user-token", http.StatusOK},
		{"lowercase scheme", "bearer user-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.header)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "u1", w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(parser), RequireRole(auth.RoleAdmin))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusForbidden, serve(router, "Bearer user-token").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, "Bearer admin-token").Code)

	bare := gin.New()
	bare.Use(RequireRole(auth.RoleAdmin))
	bare.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusForbidden, serve(bare, "").Code)
}

func TestIPRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewIPRateLimiter(0.001, 2, time.Minute)
	defer rl.StopCleanup()

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, "").Code)
	assert.Equal(t, http.StatusOK, serve(router, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, "").Code)
}

func TestConcurrencyLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cl := NewConcurrencyLimiter(1, 0)

	entered := make(chan struct{})
	release := make(chan struct{})
	router := gin.New()
	router.Use(cl.Middleware())
	router.GET("/", func(c *gin.Context) {
		if c.Query("block") != "" {
			close(entered)
			<-release
		}
		c.Status(http.StatusOK)
	})

	done := make(chan int)
	go func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?block=1", nil))
		done <- w.Code
	}()
	<-entered

	assert.Equal(t, http.StatusServiceUnavailable, serve(router, "").Code)
	close(release)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, http.StatusOK, serve(router, "").Code)
}

func TestMetricsAndRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	core, logs := observer.New(zap.InfoLevel)

	router := gin.New()
	router.Use(Metrics(metrics.NewCollector("mw", reg)), RequestLogger(zap.New(core)))
	router.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	n, err := testutil.GatherAndCount(reg, "mw_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "/items/:id", entries[0].ContextMap()["path"])
}
