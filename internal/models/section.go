package models

// Section represents a student block for one year level.
type Section struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	YearLevel   int    `json:"year_level"`
	IsFirstYear bool   `json:"is_first_year"`
}

func (s Section) EntityID() int64      { return s.ID }
func (s Section) DisplayLabel() string { return s.Code }

// SectionPayload is the create body for a section.
type SectionPayload struct {
	Code        string `json:"code" validate:"required,max=50"`
	YearLevel   int    `json:"year_level" validate:"required,min=1,max=4"`
	IsFirstYear bool   `json:"is_first_year"`
}
