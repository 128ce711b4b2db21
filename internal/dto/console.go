package dto

import (
	"time"

	"github.com/noah-isme/sched-console/internal/models"
)

// SelectTabRequest switches the active entity kind.
type SelectTabRequest struct {
	Kind string `json:"kind" validate:"required"`
}

// EditFieldRequest replaces one draft field.
type EditFieldRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

// DraftView is a draft plus everything a form needs to render its submit control.
type DraftView struct {
	Kind      models.Kind    `json:"kind"`
	Values    models.Draft   `json:"values"`
	Fields    []models.Field `json:"fields"`
	Missing   []string       `json:"missing,omitempty"`
	Complete  bool           `json:"complete"`
	CanSubmit bool           `json:"can_submit"`
	Pending   bool           `json:"pending"`
}

// ConsoleState is the full per-session console snapshot.
type ConsoleState struct {
	ActiveKind    models.Kind           `json:"active_kind"`
	FormVisible   bool                  `json:"form_visible"`
	Draft         DraftView             `json:"draft"`
	Notifications []models.Notification `json:"notifications"`
	Pending       []models.Kind         `json:"pending,omitempty"`
}

// CollectionView is a cached collection as served to the console.
type CollectionView struct {
	Kind      models.Kind     `json:"kind"`
	Items     []models.Entity `json:"items"`
	Count     int             `json:"count"`
	FetchedAt *time.Time      `json:"fetched_at,omitempty"`
}

// ReferenceOption is one selectable foreign key.
type ReferenceOption struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// ReferenceField lists the selectable ids for one assignment reference.
type ReferenceField struct {
	Field     string            `json:"field"`
	Kind      models.Kind       `json:"kind"`
	Options   []ReferenceOption `json:"options"`
	Available bool              `json:"available"`
}

// AssignmentOptions is the referential gate's view of the assignment form.
type AssignmentOptions struct {
	Fields    []ReferenceField `json:"fields"`
	CanSubmit bool             `json:"can_submit"`
}

// MutationResult reports a completed create or delete.
type MutationResult struct {
	Kind          models.Kind           `json:"kind"`
	Entity        models.Entity         `json:"entity,omitempty"`
	DeletedID     int64                 `json:"deleted_id,omitempty"`
	Message       string                `json:"message"`
	Notifications []models.Notification `json:"notifications"`
}
