package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/sched-console/internal/models"
	appErrors "github.com/noah-isme/sched-console/pkg/errors"
)

// CollectionStore reads whole collections from the scheduling store.
type CollectionStore interface {
	List(ctx context.Context, collection string) ([]json.RawMessage, error)
}

// InvalidationPublisher tells sibling console replicas that a kind went stale.
type InvalidationPublisher interface {
	Publish(ctx context.Context, kind models.Kind) error
}

// CacheState describes one kind's slot without exposing its items.
type CacheState struct {
	Kind      models.Kind `json:"kind"`
	Loaded    bool        `json:"loaded"`
	Stale     bool        `json:"stale"`
	Count     int         `json:"count"`
	FetchedAt *time.Time  `json:"fetched_at,omitempty"`
}

type cacheSlot struct {
	mu         sync.RWMutex
	items      []models.Entity
	fetchedAt  time.Time
	loaded     bool
	stale      bool
	generation uint64
}

// ResourceCacheConfig tunes the cache.
type ResourceCacheConfig struct {
	Freshness time.Duration
}

// ResourceCache holds one collection per kind, refetched when stale or older
// than the freshness window. Concurrent fetches of one kind share a single
// store call, and a fetch that began before an invalidation is returned to its
// callers but never stored as fresh.
type ResourceCache struct {
	registry  *KindRegistry
	store     CollectionStore
	publisher InvalidationPublisher
	metrics   *MetricsService
	logger    *zap.Logger
	freshness time.Duration
	now       func() time.Time

	group singleflight.Group
	slots map[models.Kind]*cacheSlot
}

// NewResourceCache constructs the cache. publisher and metrics may be nil.
func NewResourceCache(registry *KindRegistry, store CollectionStore, publisher InvalidationPublisher, metrics *MetricsService, cfg ResourceCacheConfig, logger *zap.Logger) *ResourceCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = 5 * time.Minute
	}
	slots := make(map[models.Kind]*cacheSlot, len(models.Kinds))
	for _, k := range models.Kinds {
		slots[k] = &cacheSlot{}
	}
	return &ResourceCache{
		registry:  registry,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		freshness: cfg.Freshness,
		now:       time.Now,
		slots:     slots,
	}
}

// Fetch returns the kind's collection, reading through to the store when the
// cached copy is missing, stale or past the freshness window.
func (c *ResourceCache) Fetch(ctx context.Context, kind models.Kind) ([]models.Entity, error) {
	desc, err := c.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	slot := c.slots[kind]

	slot.mu.RLock()
	if slot.loaded && !slot.stale && c.now().Sub(slot.fetchedAt) < c.freshness {
		items := copyEntities(slot.items)
		slot.mu.RUnlock()
		c.metrics.RecordCacheLookup(string(kind), true)
		return items, nil
	}
	generation := slot.generation
	slot.mu.RUnlock()
	c.metrics.RecordCacheLookup(string(kind), false)

	key := fmt.Sprintf("%s#%d", kind, generation)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// The shared call outlives any single caller.
		return c.load(context.WithoutCancel(ctx), desc, slot, generation)
	})

	select {
	case <-ctx.Done():
		return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, fmt.Sprintf("Failed to load %s", desc.Collection))
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyEntities(res.Val.([]models.Entity)), nil
	}
}

// Peek returns the last collection seen for kind without touching the store.
// Stale collections are still returned; ok is false only when nothing was ever loaded.
func (c *ResourceCache) Peek(kind models.Kind) ([]models.Entity, bool) {
	slot, exists := c.slots[kind]
	if !exists {
		return nil, false
	}
	slot.mu.RLock()
	defer slot.mu.RUnlock()
	if !slot.loaded {
		return nil, false
	}
	return copyEntities(slot.items), true
}

// State reports slot metadata for kind.
func (c *ResourceCache) State(kind models.Kind) CacheState {
	state := CacheState{Kind: kind}
	slot, exists := c.slots[kind]
	if !exists {
		return state
	}
	slot.mu.RLock()
	defer slot.mu.RUnlock()
	state.Loaded = slot.loaded
	state.Stale = slot.stale || (slot.loaded && c.now().Sub(slot.fetchedAt) >= c.freshness)
	state.Count = len(slot.items)
	if slot.loaded {
		fetched := slot.fetchedAt
		state.FetchedAt = &fetched
	}
	return state
}

// Invalidate marks kind stale locally and broadcasts the invalidation.
func (c *ResourceCache) Invalidate(ctx context.Context, kind models.Kind) {
	if !c.invalidate(kind) {
		return
	}
	c.metrics.RecordInvalidation(string(kind), "local")
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, kind); err != nil {
		c.logger.Warn("broadcast invalidation failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}

// HandleRemoteInvalidation applies an invalidation received from another replica.
func (c *ResourceCache) HandleRemoteInvalidation(kind models.Kind) {
	if c.invalidate(kind) {
		c.metrics.RecordInvalidation(string(kind), "remote")
		c.logger.Debug("remote invalidation applied", zap.String("kind", string(kind)))
	}
}

// Refresh drops the cached copy of kind and fetches it again.
func (c *ResourceCache) Refresh(ctx context.Context, kind models.Kind) ([]models.Entity, error) {
	if c.invalidate(kind) {
		c.metrics.RecordInvalidation(string(kind), "local")
	}
	return c.Fetch(ctx, kind)
}

func (c *ResourceCache) invalidate(kind models.Kind) bool {
	slot, exists := c.slots[kind]
	if !exists {
		return false
	}
	slot.mu.Lock()
	slot.generation++
	slot.stale = true
	slot.mu.Unlock()
	return true
}

func (c *ResourceCache) load(ctx context.Context, desc *KindDescriptor, slot *cacheSlot, generation uint64) ([]models.Entity, error) {
	start := c.now()
	raw, err := c.store.List(ctx, desc.Collection)
	if err != nil {
		c.logger.Warn("collection fetch failed", zap.String("collection", desc.Collection), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, fmt.Sprintf("Failed to load %s", desc.Collection))
	}
	items, err := desc.DecodeAll(raw)
	if err != nil {
		c.logger.Warn("collection decode failed", zap.String("collection", desc.Collection), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, fmt.Sprintf("Failed to load %s", desc.Collection))
	}

	slot.mu.Lock()
	if slot.generation == generation {
		slot.items = items
		slot.fetchedAt = c.now()
		slot.loaded = true
		slot.stale = false
	}
	slot.mu.Unlock()

	c.logger.Debug("collection fetched",
		zap.String("collection", desc.Collection),
		zap.Int("count", len(items)),
		zap.Duration("duration", c.now().Sub(start)),
	)
	return items, nil
}

func copyEntities(items []models.Entity) []models.Entity {
	out := make([]models.Entity, len(items))
	copy(out, items)
	return out
}
