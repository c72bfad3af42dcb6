package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/friedchicken888/cab432-a2/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenProvider fails every call, standing in for an unreachable backend.
type brokenProvider struct{}

var errBackendDown = errors.New("backend down")

func (brokenProvider) Set(context.Context, string, interface{}, time.Duration) error {
	return errBackendDown
}
func (brokenProvider) Get(context.Context, string, interface{}) error { return errBackendDown }
func (brokenProvider) Delete(context.Context, string) error           { return errBackendDown }
func (brokenProvider) Exists(context.Context, string) (bool, error)   { return false, errBackendDown }
func (brokenProvider) Health(context.Context) error                   { return errBackendDown }
func (brokenProvider) Close() error                                   { return nil }
func (brokenProvider) Name() string                                   { return "broken" }

func TestLayer_HitAndMiss(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCollector("test", reg)
	l := NewLayer(newTestMemoryCache(t), time.Second, m)
	ctx := context.Background()

	var got cachedArtifact
	assert.False(t, l.Get(ctx, ArtifactByHash.Build("h"), &got))

	l.Set(ctx, ArtifactByHash.Build("h"), cachedArtifact{ID: 3, Hash: "h"}, time.Minute)
	assert.True(t, l.Get(ctx, ArtifactByHash.Build("h"), &got))
	assert.Equal(t, uint(3), got.ID)

	l.Del(ctx, ArtifactByHash.Build("h"))
	assert.False(t, l.Get(ctx, ArtifactByHash.Build("h"), &got))

	hits, err := testutil.GatherAndCount(reg, "test_cache_hits_total")
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestLayer_SwallowsProviderErrors(t *testing.T) {
	l := NewLayer(brokenProvider{}, 10*time.Millisecond, nil)
	ctx := context.Background()

	var v string
	assert.NotPanics(t, func() {
		l.Set(ctx, "k", "v", time.Minute)
		assert.False(t, l.Get(ctx, "k", &v))
		l.Del(ctx, "k")
	})
}

func TestLayer_NilProvider(t *testing.T) {
	l := NewLayer(nil, 0, nil)
	var v string
	assert.False(t, l.Get(context.Background(), "k", &v))
	l.Set(context.Background(), "k", "v", time.Minute)

	var nilLayer *Layer
	assert.False(t, nilLayer.Get(context.Background(), "k", &v))
}

func TestLayer_DelIgnoresCancelledContext(t *testing.T) {
	c := newTestMemoryCache(t)
	l := NewLayer(c, time.Second, nil)
	require.NoError(t, c.Set(context.Background(), "k", "v", time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Del(ctx, "k")

	var v string
	assert.True(t, IsCacheMiss(c.Get(context.Background(), "k", &v)))
}

func TestAddJitter(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := addJitter(time.Minute)
		assert.GreaterOrEqual(t, d, time.Minute)
		assert.Less(t, d, time.Minute+6*time.Second)
	}
	assert.Equal(t, time.Duration(0), addJitter(0))
}
