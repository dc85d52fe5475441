package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
)

// FindOrderForSession searches for the order a completed session most likely
// paid for. No foreign key links the two tables, so the match is heuristic:
// same user, exact amount, payment_status paid, created inside the window
// right after the session was opened. Nil means no match yet, which is a
// normal outcome — the client may still be creating the order.
//
// Two identical-amount orders by the same user inside the window are
// indistinguishable here; that gap is inherent to the missing link and is
// not papered over.
func (s *PaymentService) FindOrderForSession(ctx context.Context, session *entity.PaymentSession) (*entity.Order, error) {
	if session == nil || session.Status != entity.StatusCompleted {
		return nil, nil
	}

	window := s.paymentsCfg.ReconcileWindow
	if window <= 0 {
		window = 5 * time.Minute
	}

	from := session.CreatedAt
	return s.orderRepo.FindRecentPaidOrder(ctx, session.UserID, session.AmountCents, from, from.Add(window))
}

func (s *PaymentService) reconcileCompletedSession(ctx context.Context, session *entity.PaymentSession) {
	order, err := s.FindOrderForSession(ctx, session)
	if err != nil {
		s.logger.WithError(err).WithField("reference", session.Reference).Warn("Order reconciliation failed")
		return
	}
	if order == nil {
		s.logger.WithField("reference", session.Reference).Info("No order matched completed session yet")
		return
	}
	s.logger.WithFields(map[string]interface{}{
		"reference": session.Reference,
		"order_id":  order.ID,
	}).Info("Completed session reconciled to order")
}
