package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sched-console/internal/models"
	"github.com/noah-isme/sched-console/pkg/jobs"
)

type warmableCache interface {
	Fetch(ctx context.Context, kind models.Kind) ([]models.Entity, error)
	HandleRemoteInvalidation(kind models.Kind)
}

// CacheWarmService refetches collections in the background so the next
// operator read is served from cache: at startup and after another replica
// invalidates a kind.
type CacheWarmService struct {
	cache  warmableCache
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewCacheWarmService builds the warmer on top of a keyed job queue.
func NewCacheWarmService(cache warmableCache, cfg jobs.QueueConfig) *CacheWarmService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &CacheWarmService{cache: cache, logger: cfg.Logger}
	s.queue = jobs.NewQueue("cache-warm", s.handle, cfg)
	return s
}

// Start launches the workers.
func (s *CacheWarmService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for the workers to exit.
func (s *CacheWarmService) Stop() {
	s.queue.Stop()
}

// Warm schedules a background fetch for each kind.
func (s *CacheWarmService) Warm(kinds ...models.Kind) {
	for _, kind := range kinds {
		if err := s.queue.Enqueue(string(kind)); err != nil {
			s.logger.Warn("cache warm not scheduled", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
}

// ApplyRemote invalidates kind on behalf of another replica and refetches it.
func (s *CacheWarmService) ApplyRemote(kind models.Kind) {
	s.cache.HandleRemoteInvalidation(kind)
	s.Warm(kind)
}

func (s *CacheWarmService) handle(ctx context.Context, task jobs.Task) error {
	kind, ok := models.ParseKind(task.Key)
	if !ok {
		return fmt.Errorf("unknown kind %q", task.Key)
	}
	if _, err := s.cache.Fetch(ctx, kind); err != nil {
		return err
	}
	s.logger.Debug("collection warmed", zap.String("kind", string(kind)), zap.Int("attempt", task.Attempt))
	return nil
}
