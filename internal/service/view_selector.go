package service

import "github.com/noah-isme/sched-console/internal/models"

// ViewState is the console's tab state machine: the active kind and whether
// its draft form is open. Transitions return new values and never touch drafts.
type ViewState struct {
	Active      models.Kind `json:"active"`
	FormVisible bool        `json:"form_visible"`
}

// InitialView is the state a fresh session starts in.
func InitialView() ViewState {
	return ViewState{Active: models.KindTeacher}
}

// SelectTab activates kind; the destination form always starts hidden.
func (v ViewState) SelectTab(kind models.Kind) ViewState {
	return ViewState{Active: kind}
}

// ShowForm opens the active kind's form.
func (v ViewState) ShowForm() ViewState {
	v.FormVisible = true
	return v
}

// HideForm closes the active kind's form.
func (v ViewState) HideForm() ViewState {
	v.FormVisible = false
	return v
}

// FormVisibleFor reports whether kind's form is currently shown.
func (v ViewState) FormVisibleFor(kind models.Kind) bool {
	return v.Active == kind && v.FormVisible
}
