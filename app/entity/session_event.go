package entity

import "time"

// SessionEvent records one status change on a session, append-only.
type SessionEvent struct {
	ID uint64

	SessionID uint64

	EventType string
	OldStatus *SessionStatus
	NewStatus SessionStatus
	Source    string

	CreatedAt time.Time
}
