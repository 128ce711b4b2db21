package models

import "strings"

// Kind identifies one of the console's master-data collections.
type Kind string

const (
	KindTeacher    Kind = "teachers"
	KindCourse     Kind = "courses"
	KindSection    Kind = "sections"
	KindAssignment Kind = "assignments"
)

// Kinds lists every kind in tab order.
var Kinds = []Kind{KindTeacher, KindCourse, KindSection, KindAssignment}

// ParseKind accepts a kind's collection name, case-insensitively.
func ParseKind(raw string) (Kind, bool) {
	candidate := Kind(strings.ToLower(strings.TrimSpace(raw)))
	for _, k := range Kinds {
		if k == candidate {
			return k, true
		}
	}
	return "", false
}

// FieldType describes how a draft field is edited and parsed.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldEnum      FieldType = "enum"
	FieldNumber    FieldType = "number"
	FieldInteger   FieldType = "integer"
	FieldBool      FieldType = "bool"
	FieldReference FieldType = "reference"
)

// Field describes one editable draft field.
type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
	Ref      Kind      `json:"ref,omitempty"`
}

// Entity is any stored master-data record.
type Entity interface {
	EntityID() int64
	DisplayLabel() string
}
