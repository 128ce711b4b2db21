package models

// Academic ranks.
const (
	TitleInstructorI  = "INSTRUCTOR_I"
	TitleInstructorII = "INSTRUCTOR_II"
	TitleAsstProfIII  = "ASST_PROF_III"
	TitleAsstProfIV   = "ASST_PROF_IV"
	TitleAssocProfV   = "ASSOC_PROF_V"
)

// Employment statuses.
const (
	StatusContractOfService = "CONTRACT_OF_SERVICE"
	StatusPermanent         = "PERMANENT"
)

// Workloads.
const (
	WorkloadFullTime = "FULL_TIME"
	WorkloadPartTime = "PART_TIME"
	WorkloadVisiting = "VISITING"
)

var (
	TeacherTitles   = []string{TitleInstructorI, TitleInstructorII, TitleAsstProfIII, TitleAsstProfIV, TitleAssocProfV}
	TeacherStatuses = []string{StatusContractOfService, StatusPermanent}
	Workloads       = []string{WorkloadFullTime, WorkloadPartTime, WorkloadVisiting}
)

// Teacher represents an instructor record held by the store.
type Teacher struct {
	ID          int64   `json:"id"`
	EmployeeNo  *string `json:"employee_no,omitempty"`
	FullName    string  `json:"full_name"`
	Title       string  `json:"title"`
	Status      string  `json:"status"`
	Workload    string  `json:"workload"`
	IsSeniorOld bool    `json:"is_senior_old"`
	Active      bool    `json:"active"`
}

func (t Teacher) EntityID() int64      { return t.ID }
func (t Teacher) DisplayLabel() string { return t.FullName }

// TeacherPayload is the create body for a teacher. active is server-set.
type TeacherPayload struct {
	EmployeeNo  *string `json:"employee_no,omitempty" validate:"omitempty,max=50"`
	FullName    string  `json:"full_name" validate:"required,max=200"`
	Title       string  `json:"title" validate:"required,oneof=INSTRUCTOR_I INSTRUCTOR_II ASST_PROF_III ASST_PROF_IV ASSOC_PROF_V"`
	Status      string  `json:"status" validate:"required,oneof=CONTRACT_OF_SERVICE PERMANENT"`
	Workload    string  `json:"workload" validate:"required,oneof=FULL_TIME PART_TIME VISITING"`
	IsSeniorOld bool    `json:"is_senior_old"`
}
