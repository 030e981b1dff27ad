package entity

import "github.com/google/uuid"

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "destructive"
)

// Notification is a user-visible toast.
type Notification struct {
	SessionID   uuid.UUID `json:"session_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
}
