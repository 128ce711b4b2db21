package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/noah-isme/sched-console/pkg/storeclient"
)

// remoteStore is the subset of storeclient.Client the repository needs.
type remoteStore interface {
	List(ctx context.Context, collection string) ([]json.RawMessage, error)
	Create(ctx context.Context, collection string, payload interface{}) (json.RawMessage, error)
	Delete(ctx context.Context, collection string, id int64) error
}

// StoreRepository routes collection calls to the remote store, except for
// collections registered as local, which live in process memory.
type StoreRepository struct {
	remote remoteStore
	local  map[string]*LocalCollection
}

// NewStoreRepository constructs a repository. Each name in local is served by
// an in-process collection instead of the store.
func NewStoreRepository(remote remoteStore, local ...string) *StoreRepository {
	repo := &StoreRepository{remote: remote, local: make(map[string]*LocalCollection, len(local))}
	for _, name := range local {
		repo.local[name] = NewLocalCollection(name)
	}
	return repo
}

// IsLocal reports whether collection is served in process.
func (r *StoreRepository) IsLocal(collection string) bool {
	_, ok := r.local[collection]
	return ok
}

// List returns every item of a collection.
func (r *StoreRepository) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	if lc, ok := r.local[collection]; ok {
		return lc.List(), nil
	}
	return r.remote.List(ctx, collection)
}

// Create stores payload and returns the created item.
func (r *StoreRepository) Create(ctx context.Context, collection string, payload interface{}) (json.RawMessage, error) {
	if lc, ok := r.local[collection]; ok {
		return lc.Create(payload)
	}
	return r.remote.Create(ctx, collection, payload)
}

// Delete removes item id.
func (r *StoreRepository) Delete(ctx context.Context, collection string, id int64) error {
	if lc, ok := r.local[collection]; ok {
		return lc.Delete(id)
	}
	return r.remote.Delete(ctx, collection, id)
}

// LocalCollection is an in-memory collection with sequential ids. Its errors
// mirror the store's so callers cannot tell the two apart.
type LocalCollection struct {
	name   string
	mu     sync.RWMutex
	items  map[int64]json.RawMessage
	nextID int64
}

// NewLocalCollection returns an empty collection.
func NewLocalCollection(name string) *LocalCollection {
	return &LocalCollection{name: name, items: make(map[int64]json.RawMessage), nextID: 1}
}

// List returns the items in id order.
func (c *LocalCollection) List() []json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int64, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.items[id])
	}
	return out
}

// Create assigns the next id to payload and stores it.
func (c *LocalCollection) Create(payload interface{}) (json.RawMessage, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", c.name, err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(encoded, &fields); err != nil || fields == nil {
		return nil, &storeclient.StatusError{Method: http.MethodPost, Collection: c.name, StatusCode: http.StatusUnprocessableEntity, Detail: "payload must be an object"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	fields["id"] = id
	stored, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s item: %w", c.name, err)
	}
	c.items[id] = stored
	return stored, nil
}

// Delete removes id or reports a 404 in the store's error shape.
func (c *LocalCollection) Delete(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return &storeclient.StatusError{
			Method:     http.MethodDelete,
			Collection: c.name,
			StatusCode: http.StatusNotFound,
			Detail:     notFoundDetail(c.name),
		}
	}
	delete(c.items, id)
	return nil
}

func notFoundDetail(collection string) string {
	label := "Item"
	switch {
	case strings.Contains(collection, "assignment"):
		label = "Assignment"
	case strings.HasSuffix(collection, "s") && collection != "":
		trimmed := strings.TrimSuffix(collection, "s")
		label = strings.ToUpper(trimmed[:1]) + trimmed[1:]
	}
	return label + " not found"
}
