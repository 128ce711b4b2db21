package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/sched-console/internal/dto"
	"github.com/noah-isme/sched-console/internal/models"
	appErrors "github.com/noah-isme/sched-console/pkg/errors"
)

type entityCache interface {
	Fetch(ctx context.Context, kind models.Kind) ([]models.Entity, error)
	Peek(kind models.Kind) ([]models.Entity, bool)
}

// ReferentialGate restricts assignment references to ids currently cached for
// their kinds. Whatever the cache held when options were rendered is what a
// submit is checked against; nothing is re-validated with the store.
type ReferentialGate struct {
	registry *KindRegistry
	cache    entityCache
	logger   *zap.Logger
}

// NewReferentialGate constructs the gate.
func NewReferentialGate(registry *KindRegistry, cache entityCache, logger *zap.Logger) *ReferentialGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferentialGate{registry: registry, cache: cache, logger: logger}
}

// Options loads each referenced collection and lists its ids. A collection
// that cannot be loaded falls back to whatever was last cached.
func (g *ReferentialGate) Options(ctx context.Context, draft models.Draft) dto.AssignmentOptions {
	desc := g.registry.MustLookup(models.KindAssignment)
	out := dto.AssignmentOptions{}
	for _, ref := range desc.References() {
		items, err := g.cache.Fetch(ctx, ref.Ref)
		available := err == nil
		if err != nil {
			g.logger.Warn("reference collection unavailable", zap.String("kind", string(ref.Ref)), zap.Error(err))
			items, _ = g.cache.Peek(ref.Ref)
		}
		field := dto.ReferenceField{
			Field:     ref.Name,
			Kind:      ref.Ref,
			Options:   make([]dto.ReferenceOption, 0, len(items)),
			Available: available,
		}
		for _, item := range items {
			field.Options = append(field.Options, dto.ReferenceOption{ID: item.EntityID(), Label: item.DisplayLabel()})
		}
		sort.Slice(field.Options, func(i, j int) bool { return field.Options[i].ID < field.Options[j].ID })
		out.Fields = append(out.Fields, field)
	}
	out.CanSubmit = g.CanSubmit(draft)
	return out
}

// CanSubmit is true iff every reference field is set to an id present in its cached collection.
func (g *ReferentialGate) CanSubmit(draft models.Draft) bool {
	return g.Check(draft) == nil
}

// Check returns a ValidationGap error naming the first unresolved reference.
func (g *ReferentialGate) Check(draft models.Draft) error {
	desc := g.registry.MustLookup(models.KindAssignment)
	for _, ref := range desc.References() {
		if !draft.IsSet(ref.Name) {
			return appErrors.Clone(appErrors.ErrValidationGap, fmt.Sprintf("%s is not selected", ref.Label))
		}
		id, err := strconv.ParseInt(draft.Get(ref.Name), 10, 64)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidationGap, fmt.Sprintf("%s is not a valid id", ref.Label))
		}
		if !g.cached(ref.Ref, id) {
			return appErrors.Clone(appErrors.ErrValidationGap, fmt.Sprintf("%s %d is not among the loaded %s", ref.Label, id, ref.Ref))
		}
	}
	return nil
}

func (g *ReferentialGate) cached(kind models.Kind, id int64) bool {
	items, ok := g.cache.Peek(kind)
	if !ok {
		return false
	}
	for _, item := range items {
		if item.EntityID() == id {
			return true
		}
	}
	return false
}
