package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheLookup("teachers", false)
	m.RecordCacheLookup("teachers", true)
	m.RecordCacheLookup("teachers", true)
	m.RecordCacheLookup("courses", true)
	m.ObserveStoreCall("list", "teachers", http.StatusOK, 10*time.Millisecond)
	m.ObserveStoreCall("create", "teachers", http.StatusUnprocessableEntity, 5*time.Millisecond)
	m.ObserveStoreCall("delete", "sections", 0, time.Millisecond)
	m.RecordMutation("teachers", opCreate, "failure")

	snapshot := m.Snapshot()
	assert.Equal(t, uint64(3), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.InDelta(t, 0.75, snapshot.CacheHitRatio, 1e-9)
	assert.Equal(t, uint64(3), snapshot.StoreCalls)
	assert.Equal(t, uint64(2), snapshot.StoreFailures)
	assert.Equal(t, uint64(1), snapshot.MutationsTotal)
	assert.Positive(t, snapshot.Goroutines)
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.RecordInvalidation("sections", "remote")
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/console/state", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `resource_cache_invalidations_total{kind="sections",origin="remote"} 1`))
	assert.Contains(t, body, "http_requests_total")
}

func TestMetricsServiceNilReceiver(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.RecordCacheLookup("teachers", true)
		m.RecordMutation("teachers", opDelete, "success")
		m.ObserveStoreCall("list", "teachers", http.StatusOK, time.Millisecond)
	})
	assert.Zero(t, m.Snapshot().CacheHits)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
