package service

import (
	"context"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
)

// Monitor sweep outcomes beyond the shared ingestion outcomes.
const (
	MonitorOutcomeStillProcessing = "still_processing"
	MonitorOutcomeFailed          = "failed"
)

type MonitorOutcome struct {
	Reference string
	Age       time.Duration
	Outcome   string
	Err       error
}

// RunMonitorSweep finds sessions stalled in processing beyond the configured
// threshold and drives them through the same ingestion path a real callback
// takes. The gateway's own status endpoint is queried first; a synthesized
// completed status is only assumed when that is explicitly enabled. One
// failing session never aborts the batch.
func (s *PaymentService) RunMonitorSweep(ctx context.Context) ([]MonitorOutcome, error) {
	now := time.Now().UTC()
	threshold := s.paymentsCfg.StuckSessionAfter
	if threshold <= 0 {
		threshold = 10 * time.Minute
	}

	sessions, err := s.sessionRepo.ListStuckProcessing(ctx, now.Add(-threshold), s.monitorBatchSize())
	if err != nil {
		return nil, err
	}

	outcomes := make([]MonitorOutcome, 0, len(sessions))
	for _, session := range sessions {
		outcome := s.recoverSession(ctx, session, now)
		outcomes = append(outcomes, outcome)

		entry := s.logger.WithFields(map[string]interface{}{
			"reference":   outcome.Reference,
			"age":         outcome.Age.String(),
			"age_seconds": int64(outcome.Age.Seconds()),
			"outcome":     outcome.Outcome,
		})
		if outcome.Err != nil {
			entry.WithError(outcome.Err).Error("Stuck session recovery failed")
			continue
		}
		entry.Info("Stuck session recovery attempted")
	}

	return outcomes, nil
}

func (s *PaymentService) recoverSession(ctx context.Context, session *entity.PaymentSession, now time.Time) MonitorOutcome {
	outcome := MonitorOutcome{
		Reference: session.Reference,
		Age:       now.Sub(session.UpdatedAt),
	}

	status, err := s.queryGatewayStatus(ctx, session)
	if err != nil || status == "" {
		if !s.paymentsCfg.MonitorAssumeCompleted {
			outcome.Outcome = MonitorOutcomeFailed
			outcome.Err = err
			return outcome
		}
		// Optimistic legacy behavior: treat the stalled session as paid
		// without gateway confirmation. Off unless explicitly enabled.
		status = entity.StatusCompleted
	}

	if status == entity.StatusProcessing || status == entity.StatusPending {
		outcome.Outcome = MonitorOutcomeStillProcessing
		return outcome
	}

	rawStatus := strings.ToUpper(string(status))
	txnID := ""
	if session.GatewayTransactionID != nil {
		txnID = *session.GatewayTransactionID
	}

	result, err := s.IngestEvent(ctx, &InboundEvent{
		Reference:            session.Reference,
		RawStatus:            rawStatus,
		Status:               status,
		GatewayTransactionID: txnID,
		Source:               entity.SourceMonitor,
		PayloadJSON: marshalJSON(map[string]string{
			"reference":      session.Reference,
			"status":         rawStatus,
			"transaction_id": txnID,
			"source":         "auto_recovery",
		}),
	})
	if err != nil {
		outcome.Outcome = MonitorOutcomeFailed
		outcome.Err = err
		return outcome
	}

	outcome.Outcome = result.Outcome
	return outcome
}

func (s *PaymentService) queryGatewayStatus(ctx context.Context, session *entity.PaymentSession) (entity.SessionStatus, error) {
	client, err := s.gatewayReg.Get(session.Provider)
	if err != nil {
		return "", err
	}
	return client.GetOrderStatus(ctx, session.Reference)
}

func (s *PaymentService) monitorBatchSize() int32 {
	if s.paymentsCfg.MonitorBatchSize > 0 {
		return s.paymentsCfg.MonitorBatchSize
	}
	return defaultMonitorBatchSize
}
