package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sched-console/internal/models"
	appErrors "github.com/noah-isme/sched-console/pkg/errors"
)

// DraftBook keeps one independent draft per kind. It is not safe for concurrent
// use on its own; a Session serialises access.
type DraftBook struct {
	registry  *KindRegistry
	validator *validator.Validate
	drafts    map[models.Kind]models.Draft
}

// NewDraftBook returns a book with every kind at its default draft.
func NewDraftBook(registry *KindRegistry, validate *validator.Validate) *DraftBook {
	if validate == nil {
		validate = NewValidator()
	}
	b := &DraftBook{registry: registry, validator: validate, drafts: make(map[models.Kind]models.Draft, len(models.Kinds))}
	for _, k := range models.Kinds {
		b.drafts[k] = registry.DefaultDraft(k)
	}
	return b
}

// Get returns a copy of the kind's current draft.
func (b *DraftBook) Get(kind models.Kind) models.Draft {
	return b.drafts[kind].Clone()
}

// SetField normalises value for the field's type and replaces the whole draft.
// Numeric input that does not parse leaves the field unset.
func (b *DraftBook) SetField(kind models.Kind, name, value string) (models.Draft, error) {
	desc, err := b.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	field, ok := desc.Field(name)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s has no field %q", desc.Singular, name))
	}
	normalized, err := normalizeField(field, value)
	if err != nil {
		return nil, err
	}
	next := b.drafts[kind].With(name, normalized)
	b.drafts[kind] = next
	return next.Clone(), nil
}

// Reset restores the kind's default draft.
func (b *DraftBook) Reset(kind models.Kind) {
	b.drafts[kind] = b.registry.DefaultDraft(kind)
}

// Complete reports whether every required field holds a valid, non-sentinel value.
func (b *DraftBook) Complete(kind models.Kind) bool {
	return b.Check(kind) == nil
}

// Check validates the kind's draft and returns a ValidationGap error describing the first gap.
func (b *DraftBook) Check(kind models.Kind) error {
	desc, err := b.registry.Lookup(kind)
	if err != nil {
		return err
	}
	return checkDraft(desc, b.validator, b.drafts[kind])
}

// MissingFields lists required fields still holding the unset sentinel.
func (b *DraftBook) MissingFields(kind models.Kind) []string {
	desc, err := b.registry.Lookup(kind)
	if err != nil {
		return nil
	}
	draft := b.drafts[kind]
	var missing []string
	for _, f := range desc.Fields {
		if f.Required && !draft.IsSet(f.Name) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

func checkDraft(desc *KindDescriptor, validate *validator.Validate, draft models.Draft) error {
	for _, f := range desc.Fields {
		if f.Required && !draft.IsSet(f.Name) {
			return appErrors.Clone(appErrors.ErrValidationGap, fmt.Sprintf("%s draft is missing %s", desc.Singular, f.Name))
		}
	}
	if err := validate.Struct(desc.Payload(draft)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidationGap.Code, appErrors.ErrValidationGap.Status, fmt.Sprintf("%s draft is invalid", desc.Singular))
	}
	return nil
}

func normalizeField(field models.Field, value string) (string, error) {
	switch field.Type {
	case models.FieldText:
		return value, nil
	case models.FieldEnum:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return "", nil
		}
		for _, opt := range field.Options {
			if opt == trimmed {
				return trimmed, nil
			}
		}
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%q is not a valid %s", trimmed, field.Label))
	case models.FieldBool:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return "false", nil
		}
		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be true or false", field.Label))
		}
		return strconv.FormatBool(b), nil
	case models.FieldNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", nil
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case models.FieldInteger, models.FieldReference:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return "", nil
		}
		normalized := strconv.FormatInt(n, 10)
		if len(field.Options) > 0 && !contains(field.Options, normalized) {
			return "", nil
		}
		return normalized, nil
	}
	return value, nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
