// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 指标收集器。所有方法对 nil 接收者安全，未启用指标时可直接传 nil。
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheErrors *prometheus.CounterVec

	gateRejections  prometheus.Counter
	renderDuration  *prometheus.HistogramVec
	artifactsPurged prometheus.Counter
	conflicts       prometheus.Counter
}

// NewCollector registers the collectors on reg under namespace.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by key kind",
		}, []string{"kind"}),
		cacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses by key kind",
		}, []string{"kind"}),
		cacheErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Swallowed cache provider errors by operation",
		}, []string{"op"}),
		gateRejections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_busy_rejections_total",
			Help:      "Requests rejected because a generation was in flight",
		}),
		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Fractal render duration by outcome",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		artifactsPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_purged_total",
			Help:      "Fractals deleted after their last gallery reference was removed",
		}),
		conflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "create_conflicts_total",
			Help:      "Duplicate-hash inserts recovered by re-fetching the winner",
		}),
	}
}

func (c *Collector) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (c *Collector) RecordCacheHit(kind string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordCacheMiss(kind string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordCacheError(op string) {
	if c == nil {
		return
	}
	c.cacheErrors.WithLabelValues(op).Inc()
}

func (c *Collector) RecordBusy() {
	if c == nil {
		return
	}
	c.gateRejections.Inc()
}

func (c *Collector) RecordRender(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.renderDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (c *Collector) RecordPurge() {
	if c == nil {
		return
	}
	c.artifactsPurged.Inc()
}

func (c *Collector) RecordConflict() {
	if c == nil {
		return
	}
	c.conflicts.Inc()
}
