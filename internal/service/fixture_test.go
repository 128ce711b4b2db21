package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sched-console/internal/dto"
	"github.com/noah-isme/sched-console/internal/models"
	"github.com/noah-isme/sched-console/internal/repository"
	"github.com/noah-isme/sched-console/internal/storetest"
	"github.com/noah-isme/sched-console/pkg/storeclient"
)

type publisherStub struct {
	mu    sync.Mutex
	kinds []models.Kind
	err   error
}

func (p *publisherStub) Publish(ctx context.Context, kind models.Kind) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, kind)
	return p.err
}

func (p *publisherStub) published() []models.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Kind, len(p.kinds))
	copy(out, p.kinds)
	return out
}

type fixture struct {
	store     *storetest.Store
	repo      *repository.StoreRepository
	registry  *KindRegistry
	cache     *ResourceCache
	gate      *ReferentialGate
	mutations *MutationService
	console   *ConsoleService
	publisher *publisherStub
	metrics   *MetricsService
}

type fixtureOptions struct {
	localAssignments bool
	notify           NotifierConfig
}

func newFixture(t *testing.T, opts ...func(*fixtureOptions)) *fixture {
	t.Helper()
	o := fixtureOptions{notify: NotifierConfig{SuccessTTL: time.Minute, ErrorTTL: time.Minute}}
	for _, opt := range opts {
		opt(&o)
	}

	store := storetest.New(t)
	metrics := NewMetricsService()
	client, err := storeclient.New(storeclient.Options{BaseURL: store.URL(), Observer: metrics})
	require.NoError(t, err)

	registry := NewKindRegistry(7, "")
	var local []string
	if o.localAssignments {
		local = append(local, registry.MustLookup(models.KindAssignment).Collection)
	}
	repo := repository.NewStoreRepository(client, local...)

	publisher := &publisherStub{}
	cache := NewResourceCache(registry, repo, publisher, metrics, ResourceCacheConfig{}, nil)
	gate := NewReferentialGate(registry, cache, nil)
	mutations := NewMutationService(registry, repo, cache, gate, metrics, nil)
	console := NewConsoleService(registry, cache, gate, mutations, nil, ConsoleConfig{Notifications: o.notify}, nil)
	t.Cleanup(console.Close)

	return &fixture{
		store:     store,
		repo:      repo,
		registry:  registry,
		cache:     cache,
		gate:      gate,
		mutations: mutations,
		console:   console,
		publisher: publisher,
		metrics:   metrics,
	}
}

func withLocalAssignments() func(*fixtureOptions) {
	return func(o *fixtureOptions) { o.localAssignments = true }
}

func withNotifyTTL(success, failure time.Duration) func(*fixtureOptions) {
	return func(o *fixtureOptions) { o.notify = NotifierConfig{SuccessTTL: success, ErrorTTL: failure} }
}

// edit applies field edits to a session's draft, failing the test on any error.
func (f *fixture) edit(t *testing.T, session string, kind models.Kind, fields map[string]string) {
	t.Helper()
	for name, value := range fields {
		_, err := f.console.EditField(context.Background(), session, kind, editReq(name, value))
		require.NoError(t, err, name)
	}
}

func ids(items []models.Entity) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.EntityID())
	}
	return out
}

func editReq(field, value string) dto.EditFieldRequest {
	return dto.EditFieldRequest{Field: field, Value: value}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
