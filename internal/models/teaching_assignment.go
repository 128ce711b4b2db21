package models

import "fmt"

// TeachingAssignment links a teacher to a course taught to a section in a term.
// The nested snapshots are present only when the store denormalises them.
type TeachingAssignment struct {
	ID        int64    `json:"id"`
	TeacherID int64    `json:"teacher_id"`
	CourseID  int64    `json:"course_id"`
	SectionID int64    `json:"section_id"`
	TermID    int64    `json:"term_id"`
	Teacher   *Teacher `json:"teacher,omitempty"`
	Course    *Course  `json:"course,omitempty"`
	Section   *Section `json:"section,omitempty"`
}

func (a TeachingAssignment) EntityID() int64 { return a.ID }

func (a TeachingAssignment) DisplayLabel() string {
	if a.Teacher != nil && a.Course != nil && a.Section != nil {
		return fmt.Sprintf("%s / %s / %s", a.Teacher.FullName, a.Course.CourseCode, a.Section.Code)
	}
	return fmt.Sprintf("teacher %d / course %d / section %d", a.TeacherID, a.CourseID, a.SectionID)
}

// TeachingAssignmentPayload is the create body for an assignment.
type TeachingAssignmentPayload struct {
	TeacherID int64 `json:"teacher_id" validate:"required,gt=0"`
	CourseID  int64 `json:"course_id" validate:"required,gt=0"`
	SectionID int64 `json:"section_id" validate:"required,gt=0"`
	TermID    int64 `json:"term_id" validate:"required,gt=0"`
}
