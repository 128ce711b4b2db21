package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sched-console/internal/models"
)

// InvalidationMessage is broadcast when a replica invalidates a collection.
type InvalidationMessage struct {
	Origin string      `json:"origin"`
	Kind   models.Kind `json:"kind"`
	At     time.Time   `json:"at"`
}

// InvalidationRepository fans cache invalidations out over Redis pub/sub. A nil
// client turns every call into a no-op so a single replica runs without Redis.
type InvalidationRepository struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

// NewInvalidationRepository constructs the repository with a fresh origin id.
func NewInvalidationRepository(client *redis.Client, channel string, logger *zap.Logger) *InvalidationRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvalidationRepository{client: client, channel: channel, origin: uuid.NewString(), logger: logger}
}

// Origin identifies this replica in broadcast messages.
func (r *InvalidationRepository) Origin() string {
	return r.origin
}

// Publish announces that kind went stale.
func (r *InvalidationRepository) Publish(ctx context.Context, kind models.Kind) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(InvalidationMessage{Origin: r.origin, Kind: kind, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal invalidation for %s: %w", kind, err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", r.channel, err)
	}
	return nil
}

// Subscribe delivers invalidations from other replicas to apply until ctx is done.
func (r *InvalidationRepository) Subscribe(ctx context.Context, apply func(models.Kind)) error {
	if r.client == nil {
		return nil
	}
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("listening for cache invalidations", zap.String("channel", r.channel), zap.String("origin", r.origin))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			kind, ok := r.decode([]byte(msg.Payload))
			if !ok {
				continue
			}
			apply(kind)
		}
	}
}

// decode drops malformed messages, unknown kinds and this replica's own broadcasts.
func (r *InvalidationRepository) decode(payload []byte) (models.Kind, bool) {
	var msg InvalidationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.logger.Warn("malformed invalidation message", zap.Error(err))
		return "", false
	}
	if msg.Origin == r.origin {
		return "", false
	}
	kind, ok := models.ParseKind(string(msg.Kind))
	if !ok {
		r.logger.Warn("invalidation for unknown kind", zap.String("kind", string(msg.Kind)))
		return "", false
	}
	return kind, true
}
