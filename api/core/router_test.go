package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/friedchicken888/cab432-a2/cache"
	"github.com/friedchicken888/cab432-a2/database/dbtest"
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
	"github.com/friedchicken888/cab432-a2/storage/blobtest"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	jwt    *auth.JWTService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem, err := cache.NewMemoryCache(cache.MemoryConfig{NumCounters: 1000, MaxCost: 1 << 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("test", reg)

	db := dbtest.Open(t)
	blobs := blobtest.New()
	layer := cache.NewLayer(mem, time.Second, collector)
	listings := cache.NewListingCache(layer, cache.NewMemoryRegistry(0), time.Minute)

	artifactSvc := artifacts.NewService(artifactrepo.NewRepository(db), layer, time.Hour)
	gallerySvc := gallery.NewService(galleryrepo.NewRepository(db), artifactSvc, blobs, listings, time.Minute, collector)
	historySvc := history.NewService(historyrepo.NewRepository(db), blobs, time.Minute)
	renderer := fractal.RendererFunc(func(context.Context, fractal.Params) ([]byte, error) {
		return []byte("png"), nil
	})
	orch := orchestrator.New(artifactSvc, gallerySvc, historySvc, blobs, renderer, gate.New(),
		orchestrator.Options{RenderTimeout: time.Second, URLTTL: time.Minute}, collector)

	jwtSvc, err := auth.NewJWTService(auth.TokenConfig{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		Issuer: "test",
	})
	require.NoError(t, err)

	router := gin.New()
	RegisterRoutes(router, &RouterDependencies{
		DB:           db,
		Cache:        mem,
		Blobs:        blobs,
		Tokens:       jwtSvc,
		Orchestrator: orch,
		Gallery:      gallerySvc,
		History:      historySvc,
		Gatherer:     reg,
	})
	return &testServer{router: router, jwt: jwtSvc}
}

func (s *testServer) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, _, err := s.jwt.GenerateAccessToken(auth.Identity{UserID: userID, Username: "user-" + userID, Role: role})
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthAndVersion(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])

	w = s.do(t, http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFractal_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/fractal", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/fractal", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFractal_FetchOrGenerate(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "u1", auth.RoleUser)

	w := s.do(t, http.MethodGet, "/api/v1/fractal?width=64&height=48&color=fire", tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode(t, w)
	assert.Len(t, first["hash"], 64)
	assert.NotEmpty(t, first["url"])
	assert.NotZero(t, first["galleryId"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	// same parameters in another order
	w = s.do(t, http.MethodGet, "/api/v1/fractal?color=fire&height=48&width=64", tok)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode(t, w)
	assert.Equal(t, first["hash"], second["hash"])
	assert.Equal(t, first["galleryId"], second["galleryId"])
}

func TestFractal_InvalidParameters(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "u1", auth.RoleUser)

	w := s.do(t, http.MethodGet, "/api/v1/fractal?width=abc", tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", decode(t, w)["status"])
}

func TestGallery_ListAndDelete(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, "owner", auth.RoleUser)
	other := s.token(t, "other", auth.RoleUser)

	w := s.do(t, http.MethodGet, "/api/v1/fractal?width=32&height=32", owner)
	require.Equal(t, http.StatusOK, w.Code)
	galleryID := int(decode(t, w)["galleryId"].(float64))

	w = s.do(t, http.MethodGet, "/api/v1/gallery?sortBy=nonsense&limit=10", owner)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)
	assert.Equal(t, float64(1), list["totalCount"])
	assert.Equal(t, float64(10), list["limit"])
	rows := list["data"].([]interface{})
	require.Len(t, rows, 1)
	assert.NotContains(t, rows[0].(map[string]interface{}), "userId")

	path := fmt.Sprintf("/api/v1/gallery/%d", galleryID)
	w = s.do(t, http.MethodDelete, path, other)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "permission")

	w = s.do(t, http.MethodDelete, path, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gallery.MessageDeletedPurged, decode(t, w)["message"])

	w = s.do(t, http.MethodGet, "/api/v1/gallery?sortBy=nonsense&limit=10", owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["totalCount"])

	w = s.do(t, http.MethodDelete, "/api/v1/gallery/abc", owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "u1", auth.RoleUser)
	admin := s.token(t, "root", auth.RoleAdmin)

	w := s.do(t, http.MethodGet, "/api/v1/fractal?width=16&height=16", user)
	require.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{"/api/v1/admin/gallery", "/api/v1/admin/history"} {
		w = s.do(t, http.MethodGet, path, user)
		assert.Equal(t, http.StatusForbidden, w.Code, path)

		w = s.do(t, http.MethodGet, path+"?sortOrder=asc&colorScheme=rainbow", admin)
		require.Equal(t, http.StatusOK, w.Code, path)
		body := decode(t, w)
		assert.Equal(t, "ASC", body["sortOrder"], path)
		assert.Equal(t, map[string]interface{}{"colourScheme": "rainbow"}, body["filters"], path)
		assert.Equal(t, float64(1), body["totalCount"], path)
	}

	w = s.do(t, http.MethodGet, "/api/v1/admin/gallery", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "added_at", decode(t, w)["sortBy"])
}

func TestHistory_ListForUser(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "u1", auth.RoleUser)

	for i := 0; i < 3; i++ {
		w := s.do(t, http.MethodGet, "/api/v1/fractal?width=20&height=20", tok)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := s.do(t, http.MethodGet, "/api/v1/history?limit=2", tok)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(3), body["totalCount"])
	assert.Len(t, body["data"], 2)

	w = s.do(t, http.MethodGet, "/api/v1/history?limit=-1", tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "u1", auth.RoleUser)
	s.do(t, http.MethodGet, "/api/v1/fractal?width=8&height=8", tok)

	w := s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_render_duration_seconds")
}
