// Package metrics holds the Prometheus collectors of the mirror.
package metrics

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector records request, origin fallback, cache and reload metrics.
// A nil *Collector is valid and records nothing.
type Collector struct {
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	originFallbacks  *prometheus.CounterVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	reloads          *prometheus.CounterVec
	reloadDuration   prometheus.Histogram
	reloadRows       prometheus.Gauge
	lastSnapshot     prometheus.Gauge
	segmentsServed   prometheus.Histogram
}

// NewCollector builds the collectors under namespace and registers them on
// reg. When pool is non-nil, connection pool gauges are registered too.
func NewCollector(reg prometheus.Registerer, namespace string, pool *pgxpool.Pool) *Collector {
	c := &Collector{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds, by endpoint, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "method", "status"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served.",
		}),
		originFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "origin_fallbacks_total",
			Help:      "Local misses forwarded to the origin, by lookup kind and result.",
		}, []string{"kind", "result"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "origin_cache_hits_total",
			Help:      "Origin responses served from Redis.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "origin_cache_misses_total",
			Help:      "Origin responses not found in Redis.",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_reloads_total",
			Help:      "Reload ticks, by outcome.",
		}, []string{"outcome"}),
		reloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_import_duration_seconds",
			Help:      "Duration of committed snapshot imports.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		reloadRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_rows",
			Help:      "Rows loaded by the last committed import.",
		}),
		lastSnapshot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_last_applied_timestamp_seconds",
			Help:      "Modification time of the last applied snapshot file.",
		}),
		segmentsServed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segments_per_response",
			Help:      "Reconciled segments returned per locally answered request.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}

	reg.MustRegister(
		c.requestDuration,
		c.requestsInFlight,
		c.originFallbacks,
		c.cacheHits,
		c.cacheMisses,
		c.reloads,
		c.reloadDuration,
		c.reloadRows,
		c.lastSnapshot,
		c.segmentsServed,
	)

	if pool != nil {
		reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool_active",
				Help:      "Number of acquired database connections.",
			}, func() float64 {
				return float64(pool.Stat().AcquiredConns())
			}),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool_idle",
				Help:      "Number of idle database connections.",
			}, func() float64 {
				return float64(pool.Stat().IdleConns())
			}),
		)
	}

	return c
}

// RequestStarted marks a request in flight.
func (c *Collector) RequestStarted() {
	if c == nil {
		return
	}
	c.requestsInFlight.Inc()
}

// RequestFinished observes a completed request.
func (c *Collector) RequestFinished(endpoint, method, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.requestsInFlight.Dec()
	c.requestDuration.WithLabelValues(endpoint, method, status).Observe(d.Seconds())
}

// RecordOriginFallback counts a local miss forwarded to the origin.
func (c *Collector) RecordOriginFallback(kind, result string) {
	if c == nil {
		return
	}
	c.originFallbacks.WithLabelValues(kind, result).Inc()
}

// RecordCacheHit counts an origin response served from Redis.
func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}

// RecordCacheMiss counts an origin response missing from Redis.
func (c *Collector) RecordCacheMiss() {
	if c == nil {
		return
	}
	c.cacheMisses.Inc()
}

// RecordReload counts one reload tick by outcome.
func (c *Collector) RecordReload(outcome string) {
	if c == nil {
		return
	}
	c.reloads.WithLabelValues(outcome).Inc()
}

// RecordImport observes a committed import.
func (c *Collector) RecordImport(d time.Duration, rows int64, snapshot time.Time) {
	if c == nil {
		return
	}
	c.reloadDuration.Observe(d.Seconds())
	c.reloadRows.Set(float64(rows))
	c.lastSnapshot.Set(float64(snapshot.Unix()))
}

// RecordSegmentsServed observes the size of a locally answered response.
func (c *Collector) RecordSegmentsServed(n int) {
	if c == nil {
		return
	}
	c.segmentsServed.Observe(float64(n))
}
