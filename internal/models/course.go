package models

// Course types; a course's type is also the room type it requires.
const (
	CourseStandard   = "STANDARD"
	CourseLab        = "LAB"
	CourseShop       = "SHOP"
	CourseScienceLab = "SCIENCE_LAB"
	CourseCWATS      = "CWATS"
)

var CourseTypes = []string{CourseStandard, CourseLab, CourseShop, CourseScienceLab, CourseCWATS}

// Course represents a catalogue course.
type Course struct {
	ID                     int64   `json:"id"`
	CourseCode             string  `json:"course_code"`
	CourseName             string  `json:"course_name"`
	Units                  float64 `json:"units"`
	CourseType             string  `json:"course_type"`
	DefaultDurationMinutes *int    `json:"default_duration_minutes,omitempty"`
}

func (c Course) EntityID() int64 { return c.ID }

func (c Course) DisplayLabel() string {
	if c.CourseName == "" {
		return c.CourseCode
	}
	return c.CourseCode + " - " + c.CourseName
}

// CoursePayload is the create body for a course.
type CoursePayload struct {
	CourseCode             string  `json:"course_code" validate:"required,max=50"`
	CourseName             string  `json:"course_name" validate:"required,max=200"`
	Units                  float64 `json:"units" validate:"required,gt=0,halfstep"`
	CourseType             string  `json:"course_type" validate:"required,oneof=STANDARD LAB SHOP SCIENCE_LAB CWATS"`
	DefaultDurationMinutes *int    `json:"default_duration_minutes,omitempty" validate:"omitempty,gt=0"`
}
