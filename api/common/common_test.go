package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/friedchicken888/cab432-a2/internal/fractal"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fractal.ErrValidation, http.StatusBadRequest},
		{fractal.ErrInvalidQuery, http.StatusBadRequest},
		{fractal.ErrBusy, http.StatusTooManyRequests},
		{fractal.ErrRenderFailed, http.StatusInternalServerError},
		{fractal.ErrAborted, StatusClientClosedRequest},
		{fractal.ErrBlobStore, http.StatusBadGateway},
		{fractal.ErrNotFound, http.StatusNotFound},
		{fractal.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", fractal.ErrBusy), http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got, msg := StatusFor(tt.err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestRespondDomainError_HidesInternals(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/internal", func(c *gin.Context) {
		RespondDomainError(c, fmt.Errorf("%w: dial tcp 10.0.0.5:5432", fractal.ErrBlobStore))
	})
	router.GET("/validation", func(c *gin.Context) {
		RespondDomainError(c, fmt.Errorf("%w: width must be between 1 and 8192", fractal.ErrValidation))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/validation", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "width must be between")
}

func TestBindListQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(query string) (*httptest.ResponseRecorder, map[string]interface{}) {
		var got map[string]interface{}
		router := gin.New()
		router.GET("/", func(c *gin.Context) {
			q, err := BindListQuery(c)
			if err != nil {
				RespondDomainError(c, err)
				return
			}
			got = map[string]interface{}{
				"filters": q.Filters.Map(),
				"sortBy":  q.SortBy,
				"limit":   q.Limit,
				"offset":  q.Offset,
			}
			c.Status(http.StatusOK)
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?"+query, nil))
		return w, got
	}

	w, got := run("limit=10&offset=5&sortBy=power&colorScheme=fire&width=640&power=")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, got["limit"])
	assert.Equal(t, 5, got["offset"])
	assert.Equal(t, "power", got["sortBy"])
	assert.Equal(t, map[string]string{"colourScheme": "fire", "width": "640"}, got["filters"])

	for _, query := range []string{"width=wide", "offset=-3", "limit=lots"} {
		w, _ = run(query)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
		assert.JSONEq(t, `{"status":"error","msg":"Invalid query parameters"}`, w.Body.String(), query)
	}
}
