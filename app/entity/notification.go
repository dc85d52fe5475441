package entity

import "time"

const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is one side-effect attempt for a session transition. DedupKey
// suppresses duplicates: a non-failed row with the same key blocks re-enqueue.
type Notification struct {
	ID uint64

	EventType string
	Recipient string
	Reference string
	DedupKey  string

	Status        string
	Attempts      int32
	NextAttemptAt *time.Time
	LastError     *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
