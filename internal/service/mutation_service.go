package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/sched-console/internal/dto"
	"github.com/noah-isme/sched-console/internal/models"
	appErrors "github.com/noah-isme/sched-console/pkg/errors"
	"github.com/noah-isme/sched-console/pkg/storeclient"
)

// EntityWriter performs create/delete calls against the store.
type EntityWriter interface {
	Create(ctx context.Context, collection string, payload interface{}) (json.RawMessage, error)
	Delete(ctx context.Context, collection string, id int64) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, kind models.Kind)
}

const (
	opCreate = "create"
	opDelete = "delete"
)

// MutationService sends a session's create and delete requests to the store
// and applies the outcome to that session: on success the kind is invalidated,
// its draft reset and a success message posted; on failure only an error
// message is posted.
type MutationService struct {
	registry *KindRegistry
	writer   EntityWriter
	cache    cacheInvalidator
	gate     *ReferentialGate
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewMutationService constructs the orchestrator.
func NewMutationService(registry *KindRegistry, writer EntityWriter, cache cacheInvalidator, gate *ReferentialGate, metrics *MetricsService, logger *zap.Logger) *MutationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MutationService{registry: registry, writer: writer, cache: cache, gate: gate, metrics: metrics, logger: logger}
}

// Create submits the session's draft for kind. Incomplete drafts are withheld
// with a ValidationGap error and never reach the store.
func (s *MutationService) Create(ctx context.Context, session *Session, kind models.Kind) (*dto.MutationResult, error) {
	desc, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	if err := s.prepare(session, kind); err != nil {
		session.mu.Unlock()
		return nil, err
	}
	if err := session.drafts.Check(kind); err != nil {
		session.mu.Unlock()
		return nil, err
	}
	draft := session.drafts.Get(kind)
	if kind == models.KindAssignment && s.gate != nil {
		if err := s.gate.Check(draft); err != nil {
			session.mu.Unlock()
			return nil, err
		}
	}
	session.pending[kind] = true
	session.mu.Unlock()

	// A navigation away must not abort a write already sent.
	raw, storeErr := s.writer.Create(context.WithoutCancel(ctx), desc.Collection, desc.Payload(draft))
	if storeErr != nil {
		return nil, s.fail(session, desc, opCreate, storeErr)
	}
	// The write happened even if the echo is missing or unreadable; the refetch will show it.
	var entity models.Entity
	if len(raw) > 0 {
		decoded, decodeErr := desc.Decode(raw)
		if decodeErr != nil {
			s.logger.Warn("created entity could not be decoded", zap.String("collection", desc.Collection), zap.Error(decodeErr))
		} else {
			entity = decoded
		}
	}

	s.cache.Invalidate(context.WithoutCancel(ctx), kind)
	message := desc.SuccessMessage(opCreate)

	session.mu.Lock()
	delete(session.pending, kind)
	session.drafts.Reset(kind)
	if session.view.Active == kind {
		session.view = session.view.HideForm()
	}
	session.notifier.Success(message)
	session.mu.Unlock()

	s.metrics.RecordMutation(string(kind), opCreate, "success")
	fields := []zap.Field{zap.String("session", session.ID), zap.String("collection", desc.Collection)}
	if entity != nil {
		fields = append(fields, zap.Int64("id", entity.EntityID()))
	}
	s.logger.Info("entity created", fields...)
	return &dto.MutationResult{Kind: kind, Entity: entity, Message: message, Notifications: session.notifier.Current()}, nil
}

// Delete removes entity id of kind from the store.
func (s *MutationService) Delete(ctx context.Context, session *Session, kind models.Kind, id int64) (*dto.MutationResult, error) {
	desc, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid %s id", desc.Singular))
	}

	session.mu.Lock()
	if err := s.prepare(session, kind); err != nil {
		session.mu.Unlock()
		return nil, err
	}
	session.pending[kind] = true
	session.mu.Unlock()

	if storeErr := s.writer.Delete(context.WithoutCancel(ctx), desc.Collection, id); storeErr != nil {
		return nil, s.fail(session, desc, opDelete, storeErr)
	}

	s.cache.Invalidate(context.WithoutCancel(ctx), kind)
	message := desc.SuccessMessage(opDelete)

	session.mu.Lock()
	delete(session.pending, kind)
	session.drafts.Reset(kind)
	session.notifier.Success(message)
	session.mu.Unlock()

	s.metrics.RecordMutation(string(kind), opDelete, "success")
	s.logger.Info("entity deleted",
		zap.String("session", session.ID),
		zap.String("collection", desc.Collection),
		zap.Int64("id", id),
	)
	return &dto.MutationResult{Kind: kind, DeletedID: id, Message: message, Notifications: session.notifier.Current()}, nil
}

// prepare must be called with session.mu held.
func (s *MutationService) prepare(session *Session, kind models.Kind) error {
	if session.pending[kind] {
		return appErrors.Clone(appErrors.ErrMutationPending, fmt.Sprintf("a %s change is already in progress", kind))
	}
	return nil
}

func (s *MutationService) fail(session *Session, desc *KindDescriptor, op string, storeErr error) error {
	text, ok := storeclient.Detail(storeErr)
	if !ok {
		text = desc.FailureMessage(op)
	}

	session.mu.Lock()
	delete(session.pending, desc.Kind)
	session.notifier.Error(text)
	session.mu.Unlock()

	s.metrics.RecordMutation(string(desc.Kind), op, "failure")
	s.logger.Warn("mutation failed",
		zap.String("session", session.ID),
		zap.String("collection", desc.Collection),
		zap.String("operation", op),
		zap.Error(storeErr),
	)

	status := appErrors.ErrMutation.Status
	if code := storeclient.StatusCode(storeErr); code >= http.StatusBadRequest && code < http.StatusInternalServerError {
		status = code
	}
	return appErrors.Wrap(storeErr, appErrors.ErrMutation.Code, status, text)
}

// ParseEntityID parses a path id.
func ParseEntityID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid id")
	}
	return id, nil
}
