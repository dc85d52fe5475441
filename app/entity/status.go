package entity

// SessionStatus is the closed set of payment session states. Transitions are
// validated exclusively through CanTransition.
type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusProcessing SessionStatus = "processing"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
	StatusExpired    SessionStatus = "expired"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusExpired:
		return true
	default:
		return false
	}
}

func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired:
		return true
	default:
		return false
	}
}

// CanTransition is the single source of truth for the session state machine.
// Same-state transitions are not listed here; callers treat them as no-ops.
func CanTransition(from, to SessionStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusExpired
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed || to == StatusExpired
	default:
		return false
	}
}
