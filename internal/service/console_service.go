package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sched-console/internal/dto"
	"github.com/noah-isme/sched-console/internal/models"
	appErrors "github.com/noah-isme/sched-console/pkg/errors"
)

// Session is one operator's console: tab state, drafts, notification slots and
// the per-kind pending flags. Every field is guarded by mu.
type Session struct {
	ID string

	mu       sync.Mutex
	view     ViewState
	drafts   *DraftBook
	notifier *Notifier
	pending  map[models.Kind]bool
	lastSeen time.Time

	// requests currently holding the session; guarded by ConsoleService.mu
	inUse int
}

// ConsoleConfig configures per-session behaviour.
type ConsoleConfig struct {
	Notifications NotifierConfig
}

// ConsoleService composes the shared cache with per-session state.
type ConsoleService struct {
	registry  *KindRegistry
	cache     *ResourceCache
	gate      *ReferentialGate
	mutations *MutationService
	validator *validator.Validate
	cfg       ConsoleConfig
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewConsoleService wires the console.
func NewConsoleService(registry *KindRegistry, cache *ResourceCache, gate *ReferentialGate, mutations *MutationService, validate *validator.Validate, cfg ConsoleConfig, logger *zap.Logger) *ConsoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ConsoleService{
		registry:  registry,
		cache:     cache,
		gate:      gate,
		mutations: mutations,
		validator: validate,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// Session returns the session for id, creating it at the initial state on first use.
func (s *ConsoleService) Session(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionLocked(id)
}

func (s *ConsoleService) sessionLocked(id string) *Session {
	session, ok := s.sessions[id]
	if !ok {
		session = &Session{
			ID:       id,
			view:     InitialView(),
			drafts:   NewDraftBook(s.registry, s.validator),
			notifier: NewNotifier(s.cfg.Notifications),
			pending:  make(map[models.Kind]bool),
		}
		s.sessions[id] = session
		s.logger.Debug("console session opened", zap.String("session", id))
	}
	session.mu.Lock()
	session.lastSeen = s.now()
	session.mu.Unlock()
	return session
}

// acquire returns the session for id and keeps Sweep away from it until release is called.
func (s *ConsoleService) acquire(id string) (*Session, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessionLocked(id)
	session.inUse++
	return session, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		session.inUse--
		session.mu.Lock()
		session.lastSeen = s.now()
		session.mu.Unlock()
	}
}

// State returns the session snapshot.
func (s *ConsoleService) State(ctx context.Context, sessionID string) (*dto.ConsoleState, error) {
	session, release := s.acquire(sessionID)
	defer release()
	session.mu.Lock()
	defer session.mu.Unlock()
	return s.stateLocked(session), nil
}

// SelectTab activates kind and hides its form.
func (s *ConsoleService) SelectTab(ctx context.Context, sessionID string, kind models.Kind) (*dto.ConsoleState, error) {
	if _, err := s.registry.Lookup(kind); err != nil {
		return nil, err
	}
	session, release := s.acquire(sessionID)
	defer release()
	session.mu.Lock()
	defer session.mu.Unlock()
	session.view = session.view.SelectTab(kind)
	return s.stateLocked(session), nil
}

// OpenForm shows the active kind's form.
func (s *ConsoleService) OpenForm(ctx context.Context, sessionID string) (*dto.ConsoleState, error) {
	session, release := s.acquire(sessionID)
	defer release()
	session.mu.Lock()
	defer session.mu.Unlock()
	session.view = session.view.ShowForm()
	return s.stateLocked(session), nil
}

// CancelForm resets the active kind's draft and hides its form.
func (s *ConsoleService) CancelForm(ctx context.Context, sessionID string) (*dto.ConsoleState, error) {
	session, release := s.acquire(sessionID)
	defer release()
	session.mu.Lock()
	defer session.mu.Unlock()
	session.drafts.Reset(session.view.Active)
	session.view = session.view.HideForm()
	return s.stateLocked(session), nil
}

// Draft returns kind's draft for the session.
func (s *ConsoleService) Draft(ctx context.Context, sessionID string, kind models.Kind) (*dto.DraftView, error) {
	if _, err := s.registry.Lookup(kind); err != nil {
		return nil, err
	}
	session, release := s.acquire(sessionID)
	defer release()
	session.mu.Lock()
	defer session.mu.Unlock()
	view := s.draftLocked(session, kind)
	return &view, nil
}

// EditField replaces one field of kind's draft.
func (s *ConsoleService) EditField(ctx context.Context, sessionID string, kind models.Kind, req dto.EditFieldRequest) (*dto.DraftView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft edit")
	}
	session, release := s.acquire(sessionID)
	defer release()
	session.mu.Lock()
	defer session.mu.Unlock()
	if _, err := session.drafts.SetField(kind, req.Field, req.Value); err != nil {
		return nil, err
	}
	view := s.draftLocked(session, kind)
	return &view, nil
}

// Submit creates an entity from kind's draft.
func (s *ConsoleService) Submit(ctx context.Context, sessionID string, kind models.Kind) (*dto.MutationResult, error) {
	session, release := s.acquire(sessionID)
	defer release()
	return s.mutations.Create(ctx, session, kind)
}

// Delete removes an entity.
func (s *ConsoleService) Delete(ctx context.Context, sessionID string, kind models.Kind, id int64) (*dto.MutationResult, error) {
	session, release := s.acquire(sessionID)
	defer release()
	return s.mutations.Delete(ctx, session, kind, id)
}

// Collection reads kind through the shared cache.
func (s *ConsoleService) Collection(ctx context.Context, kind models.Kind) (*dto.CollectionView, error) {
	items, err := s.cache.Fetch(ctx, kind)
	if err != nil {
		return nil, err
	}
	return s.collectionView(kind, items), nil
}

// Refresh forces a refetch of kind.
func (s *ConsoleService) Refresh(ctx context.Context, kind models.Kind) (*dto.CollectionView, error) {
	items, err := s.cache.Refresh(ctx, kind)
	if err != nil {
		return nil, err
	}
	return s.collectionView(kind, items), nil
}

// AssignmentOptions lists the selectable references for the session's assignment draft.
func (s *ConsoleService) AssignmentOptions(ctx context.Context, sessionID string) (*dto.AssignmentOptions, error) {
	session, release := s.acquire(sessionID)
	defer release()
	session.mu.Lock()
	draft := session.drafts.Get(models.KindAssignment)
	session.mu.Unlock()

	options := s.gate.Options(ctx, draft)
	return &options, nil
}

// Notifications returns the visible notification slots.
func (s *ConsoleService) Notifications(ctx context.Context, sessionID string) []models.Notification {
	session, release := s.acquire(sessionID)
	defer release()
	return session.notifier.Current()
}

// Dismiss clears a notification slot.
func (s *ConsoleService) Dismiss(ctx context.Context, sessionID string, severity models.Severity) []models.Notification {
	session, release := s.acquire(sessionID)
	defer release()
	session.notifier.Dismiss(severity)
	return session.notifier.Current()
}

// Sweep closes sessions idle for longer than maxIdle and returns how many were
// closed. Sessions held by an in-flight request or with pending work are kept.
func (s *ConsoleService) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	var idle []*Session
	for id, session := range s.sessions {
		session.mu.Lock()
		expired := session.inUse == 0 && session.lastSeen.Before(cutoff) && len(session.pending) == 0
		session.mu.Unlock()
		if expired {
			idle = append(idle, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range idle {
		session.notifier.Close()
	}
	if len(idle) > 0 {
		s.logger.Info("idle console sessions closed", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Close releases every session's timers.
func (s *ConsoleService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		session.notifier.Close()
		delete(s.sessions, id)
	}
}

func (s *ConsoleService) stateLocked(session *Session) *dto.ConsoleState {
	state := &dto.ConsoleState{
		ActiveKind:    session.view.Active,
		FormVisible:   session.view.FormVisible,
		Draft:         s.draftLocked(session, session.view.Active),
		Notifications: session.notifier.Current(),
	}
	for kind, busy := range session.pending {
		if busy {
			state.Pending = append(state.Pending, kind)
		}
	}
	sort.Slice(state.Pending, func(i, j int) bool { return state.Pending[i] < state.Pending[j] })
	return state
}

func (s *ConsoleService) draftLocked(session *Session, kind models.Kind) dto.DraftView {
	desc := s.registry.MustLookup(kind)
	view := dto.DraftView{
		Kind:     kind,
		Values:   session.drafts.Get(kind),
		Fields:   desc.Fields,
		Missing:  session.drafts.MissingFields(kind),
		Complete: session.drafts.Complete(kind),
		Pending:  session.pending[kind],
	}
	view.CanSubmit = view.Complete && !view.Pending
	if kind == models.KindAssignment && s.gate != nil {
		view.CanSubmit = view.CanSubmit && s.gate.CanSubmit(view.Values)
	}
	return view
}

func (s *ConsoleService) collectionView(kind models.Kind, items []models.Entity) *dto.CollectionView {
	state := s.cache.State(kind)
	return &dto.CollectionView{Kind: kind, Items: items, Count: len(items), FetchedAt: state.FetchedAt}
}
