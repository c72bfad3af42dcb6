package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestCollector() *Collector {
	return NewCollector("test", prometheus.NewRegistry())
}

func TestCollector_CacheCounters(t *testing.T) {
	c := newTestCollector()

	c.RecordCacheHit("artifact")
	c.RecordCacheHit("artifact")
	c.RecordCacheMiss("listing")
	c.RecordCacheError("get")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheHits.WithLabelValues("artifact")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheMisses.WithLabelValues("listing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheErrors.WithLabelValues("get")))
}

func TestCollector_GenerationCounters(t *testing.T) {
	c := newTestCollector()

	c.RecordBusy()
	c.RecordPurge()
	c.RecordConflict()
	c.RecordRender("ok", 120*time.Millisecond)
	c.RecordHTTPRequest("GET", "/api/v1/fractal", 200, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.gateRejections))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.artifactsPurged))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.conflicts))
	assert.Equal(t, 1, testutil.CollectAndCount(c.renderDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(c.httpRequestsTotal))
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordCacheHit("artifact")
		c.RecordCacheMiss("artifact")
		c.RecordCacheError("set")
		c.RecordBusy()
		c.RecordRender("aborted", time.Second)
		c.RecordPurge()
		c.RecordConflict()
		c.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
	})
}
