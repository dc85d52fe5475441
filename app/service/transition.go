package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
)

// TransitionEvent carries a requested status change for a session.
type TransitionEvent struct {
	To                   entity.SessionStatus
	GatewayTransactionID *string
	Source               string
}

// Transition is the only code path that mutates a session's status. The
// returned bool reports whether this call applied the change: requesting the
// status the session already holds is an idempotent no-op, requesting any
// other transition outside the table is ErrConflict. The underlying write is
// conditional on the current status, so two producers racing on the same
// reference cannot both apply the effect.
func (s *PaymentService) Transition(ctx context.Context, reference string, event TransitionEvent) (*entity.PaymentSession, bool, error) {
	session, err := s.GetSession(ctx, reference)
	if err != nil {
		return nil, false, err
	}

	if session.Status == event.To {
		return session, false, nil
	}
	if !entity.CanTransition(session.Status, event.To) {
		return nil, false, ErrConflict
	}

	now := time.Now().UTC()
	from := session.Status
	applied, err := s.sessionRepo.TransitionStatus(ctx, reference, from, event.To, event.GatewayTransactionID, now)
	if err != nil {
		return nil, false, err
	}
	if !applied {
		// Lost the race: another producer moved the session first.
		current, err := s.GetSession(ctx, reference)
		if err != nil {
			return nil, false, err
		}
		if current.Status == event.To {
			return current, false, nil
		}
		return nil, false, ErrConflict
	}

	session.Status = event.To
	session.UpdatedAt = now
	if event.GatewayTransactionID != nil {
		session.GatewayTransactionID = event.GatewayTransactionID
	}
	if event.To == entity.StatusCompleted {
		session.CompletedAt = &now
	}

	source := event.Source
	if source == "" {
		source = entity.SourceGateway
	}
	_ = s.eventRepo.Create(ctx, &entity.SessionEvent{
		SessionID: session.ID,
		EventType: "session_" + string(event.To),
		OldStatus: &from,
		NewStatus: event.To,
		Source:    source,
		CreatedAt: now,
	})

	return session, true, nil
}
