package models

import "time"

// Severity selects one of the two notification slots.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// ParseSeverity validates a severity name.
func ParseSeverity(raw string) (Severity, bool) {
	switch Severity(raw) {
	case SeveritySuccess, SeverityError:
		return Severity(raw), true
	}
	return "", false
}

// Notification is the message currently held by a slot.
type Notification struct {
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	ShownAt   time.Time `json:"shown_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
