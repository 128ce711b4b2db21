package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sched-console/internal/models"
	appErrors "github.com/noah-isme/sched-console/pkg/errors"
)

type blockingStore struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
	payload []json.RawMessage
}

func newBlockingStore(payload ...string) *blockingStore {
	s := &blockingStore{started: make(chan struct{}), release: make(chan struct{})}
	for _, p := range payload {
		s.payload = append(s.payload, json.RawMessage(p))
	}
	return s
}

func (s *blockingStore) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if first {
		close(s.started)
	}
	<-s.release
	return s.payload, nil
}

func (s *blockingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestResourceCacheServesWithinFreshnessWindow(t *testing.T) {
	f := newFixture(t)
	f.store.Seed("teachers", map[string]interface{}{"full_name": "Ana"})
	clock := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	f.cache.now = func() time.Time { return clock }

	first, err := f.cache.Fetch(context.Background(), models.KindTeacher)
	require.NoError(t, err)
	second, err := f.cache.Fetch(context.Background(), models.KindTeacher)
	require.NoError(t, err)

	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, 1, f.store.CallCount(http.MethodGet, "teachers"))

	clock = clock.Add(5*time.Minute + time.Second)
	assert.True(t, f.cache.State(models.KindTeacher).Stale)
	_, err = f.cache.Fetch(context.Background(), models.KindTeacher)
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.CallCount(http.MethodGet, "teachers"))

	snapshot := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(2), snapshot.CacheMisses)
}

func TestResourceCacheInvalidateForcesRefetchAndBroadcasts(t *testing.T) {
	f := newFixture(t)
	f.store.Seed("courses", map[string]interface{}{"course_code": "CS101", "units": 3})

	_, err := f.cache.Fetch(context.Background(), models.KindCourse)
	require.NoError(t, err)
	f.store.Seed("courses", map[string]interface{}{"course_code": "CS102", "units": 3})

	f.cache.Invalidate(context.Background(), models.KindCourse)
	assert.True(t, f.cache.State(models.KindCourse).Stale)

	items, err := f.cache.Fetch(context.Background(), models.KindCourse)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, f.store.CallCount(http.MethodGet, "courses"))
	assert.Equal(t, []models.Kind{models.KindCourse}, f.publisher.published())
}

func TestResourceCacheInvalidationIsPerKind(t *testing.T) {
	f := newFixture(t)
	f.store.Seed("teachers", map[string]interface{}{"full_name": "Ana"})
	f.store.Seed("sections", map[string]interface{}{"code": "1A", "year_level": 1})

	for _, kind := range []models.Kind{models.KindTeacher, models.KindSection} {
		_, err := f.cache.Fetch(context.Background(), kind)
		require.NoError(t, err)
	}
	f.cache.Invalidate(context.Background(), models.KindSection)

	assert.False(t, f.cache.State(models.KindTeacher).Stale)
	assert.True(t, f.cache.State(models.KindSection).Stale)
}

func TestResourceCacheDeduplicatesConcurrentFetches(t *testing.T) {
	f := newFixture(t)
	f.store.Seed("teachers", map[string]interface{}{"full_name": "Ana"})
	f.store.SetListDelay(100 * time.Millisecond)

	var wg sync.WaitGroup
	results := make([][]models.Entity, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.cache.Fetch(context.Background(), models.KindTeacher)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Len(t, results[i], 1)
	}
	assert.Equal(t, 1, f.store.CallCount(http.MethodGet, "teachers"))
}

func TestResourceCacheFetchBeforeInvalidationIsNotStoredFresh(t *testing.T) {
	store := newBlockingStore(`{"id":1,"code":"1A","year_level":1}`)
	cache := NewResourceCache(NewKindRegistry(1, ""), store, nil, nil, ResourceCacheConfig{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := cache.Fetch(context.Background(), models.KindSection)
		done <- err
	}()
	<-store.started

	cache.Invalidate(context.Background(), models.KindSection)
	close(store.release)
	require.NoError(t, <-done)

	assert.False(t, cache.State(models.KindSection).Loaded, "result of a pre-invalidation fetch must not be cached")

	_, err := cache.Fetch(context.Background(), models.KindSection)
	require.NoError(t, err)
	assert.Equal(t, 2, store.count())
	assert.True(t, cache.State(models.KindSection).Loaded)
}

func TestResourceCacheCallerCancellationDoesNotAbortSharedFetch(t *testing.T) {
	store := newBlockingStore(`{"id":1,"full_name":"Ana"}`)
	cache := NewResourceCache(NewKindRegistry(1, ""), store, nil, nil, ResourceCacheConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.Fetch(ctx, models.KindTeacher)
		done <- err
	}()
	<-store.started
	cancel()

	err := <-done
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrFetch.Code))

	close(store.release)
	assert.Eventually(t, func() bool {
		items, ok := cache.Peek(models.KindTeacher)
		return ok && len(items) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestResourceCacheFetchFailureKeepsLastCollection(t *testing.T) {
	f := newFixture(t)
	f.store.Seed("sections", map[string]interface{}{"code": "1A", "year_level": 1})

	_, err := f.cache.Fetch(context.Background(), models.KindSection)
	require.NoError(t, err)

	f.cache.Invalidate(context.Background(), models.KindSection)
	f.store.FailNext(http.MethodGet, "sections", http.StatusInternalServerError, "boom")

	_, err = f.cache.Fetch(context.Background(), models.KindSection)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrFetch.Code))

	items, ok := f.cache.Peek(models.KindSection)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestResourceCachePeekBeforeLoad(t *testing.T) {
	f := newFixture(t)
	items, ok := f.cache.Peek(models.KindCourse)
	assert.False(t, ok)
	assert.Empty(t, items)
	assert.Zero(t, f.store.CallCount(http.MethodGet, "courses"))
}

func TestResourceCacheRemoteInvalidationIsNotRebroadcast(t *testing.T) {
	f := newFixture(t)
	f.store.Seed("teachers", map[string]interface{}{"full_name": "Ana"})
	_, err := f.cache.Fetch(context.Background(), models.KindTeacher)
	require.NoError(t, err)

	f.cache.HandleRemoteInvalidation(models.KindTeacher)

	assert.True(t, f.cache.State(models.KindTeacher).Stale)
	assert.Empty(t, f.publisher.published())
}

func TestResourceCacheRefresh(t *testing.T) {
	f := newFixture(t)
	f.store.Seed("teachers", map[string]interface{}{"full_name": "Ana"})
	_, err := f.cache.Fetch(context.Background(), models.KindTeacher)
	require.NoError(t, err)
	f.store.Seed("teachers", map[string]interface{}{"full_name": "Ben"})

	items, err := f.cache.Refresh(context.Background(), models.KindTeacher)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Empty(t, f.publisher.published(), "a manual refresh stays local")
}

func TestResourceCacheUnknownKind(t *testing.T) {
	f := newFixture(t)
	_, err := f.cache.Fetch(context.Background(), models.Kind("rooms"))
	assert.ErrorIs(t, err, appErrors.ErrUnknownKind)
}
