package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sched-console/internal/models"
	appErrors "github.com/noah-isme/sched-console/pkg/errors"
)

// KindDescriptor parameterises the generic console flows for one entity kind.
type KindDescriptor struct {
	Kind       models.Kind
	Collection string
	Singular   string
	Title      string
	Fields     []models.Field

	defaults func(activeTermID int64) models.Draft
	build    func(d models.Draft) interface{}
	decode   func(raw json.RawMessage) (models.Entity, error)
}

// Field returns the named field spec.
func (d *KindDescriptor) Field(name string) (models.Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return models.Field{}, false
}

// References lists the reference fields of the kind.
func (d *KindDescriptor) References() []models.Field {
	var refs []models.Field
	for _, f := range d.Fields {
		if f.Type == models.FieldReference {
			refs = append(refs, f)
		}
	}
	return refs
}

// Payload converts a draft into the typed store payload. Unset values become zero values.
func (d *KindDescriptor) Payload(draft models.Draft) interface{} {
	return d.build(draft)
}

// Decode parses one stored entity.
func (d *KindDescriptor) Decode(raw json.RawMessage) (models.Entity, error) {
	return d.decode(raw)
}

// DecodeAll parses a collection.
func (d *KindDescriptor) DecodeAll(raw []json.RawMessage) ([]models.Entity, error) {
	items := make([]models.Entity, 0, len(raw))
	for i, r := range raw {
		entity, err := d.decode(r)
		if err != nil {
			return nil, fmt.Errorf("decode %s #%d: %w", d.Singular, i, err)
		}
		items = append(items, entity)
	}
	return items, nil
}

// SuccessMessage is shown after a completed create or delete.
func (d *KindDescriptor) SuccessMessage(op string) string {
	return fmt.Sprintf("%s %sd successfully", d.Title, op)
}

// FailureMessage is the fallback error text when the store gives no detail.
func (d *KindDescriptor) FailureMessage(op string) string {
	return fmt.Sprintf("Failed to %s %s", op, d.Singular)
}

// KindRegistry holds one descriptor per kind.
type KindRegistry struct {
	descriptors  map[models.Kind]*KindDescriptor
	activeTermID int64
}

// NewKindRegistry wires the four master-data kinds. assignmentCollection names the
// store collection backing teaching assignments.
func NewKindRegistry(activeTermID int64, assignmentCollection string) *KindRegistry {
	if assignmentCollection == "" {
		assignmentCollection = "teaching-assignments"
	}
	r := &KindRegistry{descriptors: make(map[models.Kind]*KindDescriptor), activeTermID: activeTermID}
	for _, d := range []*KindDescriptor{teacherKind(), courseKind(), sectionKind(), assignmentKind(assignmentCollection)} {
		r.descriptors[d.Kind] = d
	}
	return r
}

// Lookup resolves a descriptor.
func (r *KindRegistry) Lookup(kind models.Kind) (*KindDescriptor, error) {
	d, ok := r.descriptors[kind]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownKind, fmt.Sprintf("unknown entity kind %q", kind))
	}
	return d, nil
}

// MustLookup resolves a descriptor for a kind known at compile time.
func (r *KindRegistry) MustLookup(kind models.Kind) *KindDescriptor {
	d, err := r.Lookup(kind)
	if err != nil {
		panic(err)
	}
	return d
}

// DefaultDraft returns the empty draft for a kind.
func (r *KindRegistry) DefaultDraft(kind models.Kind) models.Draft {
	return r.MustLookup(kind).defaults(r.activeTermID)
}

func teacherKind() *KindDescriptor {
	fields := []models.Field{
		{Name: "full_name", Label: "Full name", Type: models.FieldText, Required: true},
		{Name: "employee_no", Label: "Employee no.", Type: models.FieldText},
		{Name: "title", Label: "Title", Type: models.FieldEnum, Required: true, Options: models.TeacherTitles},
		{Name: "status", Label: "Status", Type: models.FieldEnum, Required: true, Options: models.TeacherStatuses},
		{Name: "workload", Label: "Workload", Type: models.FieldEnum, Required: true, Options: models.Workloads},
		{Name: "is_senior_old", Label: "Senior / priority building", Type: models.FieldBool},
	}
	return &KindDescriptor{
		Kind:       models.KindTeacher,
		Collection: "teachers",
		Singular:   "teacher",
		Title:      "Teacher",
		Fields:     fields,
		defaults:   blankDraft(fields),
		build: func(d models.Draft) interface{} {
			return models.TeacherPayload{
				EmployeeNo:  optionalText(d.Get("employee_no")),
				FullName:    strings.TrimSpace(d.Get("full_name")),
				Title:       d.Get("title"),
				Status:      d.Get("status"),
				Workload:    d.Get("workload"),
				IsSeniorOld: parseBool(d.Get("is_senior_old")),
			}
		},
		decode: decodeAs[models.Teacher],
	}
}

func courseKind() *KindDescriptor {
	fields := []models.Field{
		{Name: "course_code", Label: "Course code", Type: models.FieldText, Required: true},
		{Name: "course_name", Label: "Course name", Type: models.FieldText, Required: true},
		{Name: "units", Label: "Units", Type: models.FieldNumber, Required: true},
		{Name: "course_type", Label: "Course type", Type: models.FieldEnum, Required: true, Options: models.CourseTypes},
		{Name: "default_duration_minutes", Label: "Default duration (minutes)", Type: models.FieldInteger},
	}
	return &KindDescriptor{
		Kind:       models.KindCourse,
		Collection: "courses",
		Singular:   "course",
		Title:      "Course",
		Fields:     fields,
		defaults:   blankDraft(fields),
		build: func(d models.Draft) interface{} {
			payload := models.CoursePayload{
				CourseCode: strings.TrimSpace(d.Get("course_code")),
				CourseName: strings.TrimSpace(d.Get("course_name")),
				Units:      parseFloat(d.Get("units")),
				CourseType: d.Get("course_type"),
			}
			if d.IsSet("default_duration_minutes") {
				minutes := parseInt(d.Get("default_duration_minutes"))
				payload.DefaultDurationMinutes = &minutes
			}
			return payload
		},
		decode: decodeAs[models.Course],
	}
}

func sectionKind() *KindDescriptor {
	fields := []models.Field{
		{Name: "code", Label: "Section code", Type: models.FieldText, Required: true},
		{Name: "year_level", Label: "Year level", Type: models.FieldInteger, Required: true, Options: []string{"1", "2", "3", "4"}},
		{Name: "is_first_year", Label: "First year (CWATS slot)", Type: models.FieldBool},
	}
	return &KindDescriptor{
		Kind:       models.KindSection,
		Collection: "sections",
		Singular:   "section",
		Title:      "Section",
		Fields:     fields,
		defaults:   blankDraft(fields),
		build: func(d models.Draft) interface{} {
			return models.SectionPayload{
				Code:        strings.TrimSpace(d.Get("code")),
				YearLevel:   parseInt(d.Get("year_level")),
				IsFirstYear: parseBool(d.Get("is_first_year")),
			}
		},
		decode: decodeAs[models.Section],
	}
}

func assignmentKind(collection string) *KindDescriptor {
	fields := []models.Field{
		{Name: "teacher_id", Label: "Teacher", Type: models.FieldReference, Required: true, Ref: models.KindTeacher},
		{Name: "course_id", Label: "Course", Type: models.FieldReference, Required: true, Ref: models.KindCourse},
		{Name: "section_id", Label: "Section", Type: models.FieldReference, Required: true, Ref: models.KindSection},
		{Name: "term_id", Label: "Term", Type: models.FieldInteger, Required: true},
	}
	blank := blankDraft(fields)
	return &KindDescriptor{
		Kind:       models.KindAssignment,
		Collection: collection,
		Singular:   "assignment",
		Title:      "Assignment",
		Fields:     fields,
		defaults: func(activeTermID int64) models.Draft {
			d := blank(activeTermID)
			if activeTermID > 0 {
				d["term_id"] = strconv.FormatInt(activeTermID, 10)
			}
			return d
		},
		build: func(d models.Draft) interface{} {
			return models.TeachingAssignmentPayload{
				TeacherID: parseID(d.Get("teacher_id")),
				CourseID:  parseID(d.Get("course_id")),
				SectionID: parseID(d.Get("section_id")),
				TermID:    parseID(d.Get("term_id")),
			}
		},
		decode: decodeAs[models.TeachingAssignment],
	}
}

func blankDraft(fields []models.Field) func(int64) models.Draft {
	return func(int64) models.Draft {
		d := make(models.Draft, len(fields))
		for _, f := range fields {
			if f.Type == models.FieldBool {
				d[f.Name] = "false"
				continue
			}
			d[f.Name] = ""
		}
		return d
	}
}

func decodeAs[T models.Entity](raw json.RawMessage) (models.Entity, error) {
	var entity T
	if err := json.Unmarshal(raw, &entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// NewValidator returns a validator with the console's custom rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("halfstep", func(fl validator.FieldLevel) bool {
		doubled := fl.Field().Float() * 2
		return math.Abs(doubled-math.Round(doubled)) < 1e-9
	})
	return v
}

func optionalText(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func parseBool(raw string) bool {
	b, _ := strconv.ParseBool(raw)
	return b
}

func parseFloat(raw string) float64 {
	f, _ := strconv.ParseFloat(raw, 64)
	return f
}

func parseInt(raw string) int {
	n, _ := strconv.Atoi(raw)
	return n
}

func parseID(raw string) int64 {
	n, _ := strconv.ParseInt(raw, 10, 64)
	return n
}
