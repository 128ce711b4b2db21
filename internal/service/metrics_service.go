package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is a cheap summary used by the readiness endpoint.
type MetricsSnapshot struct {
	CacheHitRatio  float64   `json:"cache_hit_ratio"`
	CacheHits      uint64    `json:"cache_hits"`
	CacheMisses    uint64    `json:"cache_misses"`
	StoreCalls     uint64    `json:"store_calls"`
	StoreFailures  uint64    `json:"store_failures"`
	MutationsTotal uint64    `json:"mutations_total"`
	Goroutines     int       `json:"goroutines"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation for the console.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheHitRatio   prometheus.Gauge
	invalidations   *prometheus.CounterVec
	storeDuration   *prometheus.HistogramVec
	mutations       *prometheus.CounterVec

	cacheHitCount   uint64
	cacheMissCount  uint64
	storeCallCount  uint64
	storeFailCount  uint64
	mutationCounter uint64
}

// NewMetricsService registers the console collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of console API requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of console API requests",
	}, []string{"method", "path", "status"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_cache_lookups_total",
		Help: "Resource cache lookups by kind and result",
	}, []string{"kind", "result"})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "resource_cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	invalidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_cache_invalidations_total",
		Help: "Cache invalidations by kind and origin",
	}, []string{"kind", "origin"})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_request_duration_seconds",
		Help:    "Duration of scheduling store calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "collection", "status"})

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_mutations_total",
		Help: "Create/delete mutations by kind, operation and outcome",
	}, []string{"kind", "operation", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheHitRatio, invalidations, storeDuration, mutations, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLookups:    cacheLookups,
		cacheHitRatio:   cacheHitRatio,
		invalidations:   invalidations,
		storeDuration:   storeDuration,
		mutations:       mutations,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records console API request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheLookup records a resource cache hit or miss and updates the hit ratio.
func (m *MetricsService) RecordCacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()

	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// RecordInvalidation counts a cache invalidation; origin is "local" or "remote".
func (m *MetricsService) RecordInvalidation(kind, origin string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(kind, origin).Inc()
}

// ObserveStoreCall implements storeclient.Observer. Status 0 marks a transport failure.
func (m *MetricsService) ObserveStoreCall(operation, collection string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.storeCallCount, 1)
	if status == 0 || status >= 300 {
		atomic.AddUint64(&m.storeFailCount, 1)
	}
	m.storeDuration.WithLabelValues(operation, collection, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordMutation counts a create/delete outcome.
func (m *MetricsService) RecordMutation(kind, operation, outcome string) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.mutationCounter, 1)
	m.mutations.WithLabelValues(kind, operation, outcome).Inc()
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}

	return MetricsSnapshot{
		CacheHitRatio:  ratio,
		CacheHits:      hits,
		CacheMisses:    misses,
		StoreCalls:     atomic.LoadUint64(&m.storeCallCount),
		StoreFailures:  atomic.LoadUint64(&m.storeFailCount),
		MutationsTotal: atomic.LoadUint64(&m.mutationCounter),
		Goroutines:     runtime.NumGoroutine(),
		GeneratedAt:    time.Now().UTC(),
	}
}
