package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
	"github.com/vibast-solutions/ms-go-momo/app/gateway"
	"github.com/vibast-solutions/ms-go-momo/app/repository"
	"github.com/vibast-solutions/ms-go-momo/app/types"
)

// Ingestion outcomes. Every outcome except an internal failure is
// acknowledged with success toward the gateway; at-least-once delivery means
// retries are expected, and an error response would only amplify them.
const (
	OutcomeApplied   = "applied"
	OutcomeNoop      = "noop"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeConflict  = "conflict"
)

type WebhookOutcome struct {
	Outcome   string
	Reference string
	Status    entity.SessionStatus
	Duplicate bool
}

// InboundEvent is a callback normalized for ingestion. Real gateway
// callbacks, monitor-synthesized recoveries, and admin replays all become
// InboundEvents and share the same dedup and transition guarantees.
type InboundEvent struct {
	Reference            string
	RawStatus            string
	Status               entity.SessionStatus
	GatewayTransactionID string
	Source               string
	PayloadJSON          string
}

type gatewayCallbackPayload struct {
	Reference            string `json:"reference"`
	OrderReference       string `json:"order_reference"`
	Status               string `json:"status"`
	GatewayTransactionID string `json:"transaction_id"`
}

func (s *PaymentService) HandleGatewayWebhook(ctx context.Context, req *types.GatewayWebhookRequest) (*WebhookOutcome, error) {
	if err := s.authenticateWebhook(req); err != nil {
		return nil, err
	}

	var payload gatewayCallbackPayload
	if err := json.Unmarshal(req.RawBody, &payload); err != nil {
		return nil, ErrInvalidRequest
	}

	reference := strings.TrimSpace(payload.Reference)
	if reference == "" {
		reference = strings.TrimSpace(payload.OrderReference)
	}
	if reference == "" {
		return nil, ErrInvalidRequest
	}

	// Unknown vocabulary ingests with an empty normalized status and ends
	// up recorded + ignored rather than rejected.
	status, _ := gateway.ParseStatus(payload.Status)

	return s.IngestEvent(ctx, &InboundEvent{
		Reference:            reference,
		RawStatus:            strings.TrimSpace(payload.Status),
		Status:               status,
		GatewayTransactionID: strings.TrimSpace(payload.GatewayTransactionID),
		Source:               entity.SourceGateway,
		PayloadJSON:          string(req.RawBody),
	})
}

// AdminReplay synthesizes a callback for operational recovery. It bypasses
// gateway authentication (the controller guards with the admin secret) but
// flows through the same ingestion path as real traffic.
func (s *PaymentService) AdminReplay(ctx context.Context, req *types.AdminReplayRequest) (*WebhookOutcome, error) {
	status, ok := gateway.ParseStatus(req.Status)
	if !ok {
		return nil, ErrInvalidRequest
	}

	return s.IngestEvent(ctx, &InboundEvent{
		Reference:            req.Reference,
		RawStatus:            strings.ToUpper(req.Status),
		Status:               status,
		GatewayTransactionID: req.GatewayTransactionID,
		Source:               entity.SourceAdmin,
		PayloadJSON:          marshalJSON(req),
	})
}

// IngestEvent records the event in the append-only ledger, applies the state
// transition at most once, and fires side effects only when the transition
// actually applied.
func (s *PaymentService) IngestEvent(ctx context.Context, ev *InboundEvent) (*WebhookOutcome, error) {
	session, err := s.sessionRepo.FindByReference(ctx, ev.Reference)
	if err != nil {
		return nil, err
	}

	dedupKey := webhookDedupKey(ev.Reference, ev.GatewayTransactionID, ev.Status)
	existing, err := s.webhookEventRepo.FindByDedupKey(ctx, dedupKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.duplicateOutcome(ev.Reference, session), nil
	}

	now := time.Now().UTC()
	record := &entity.WebhookEvent{
		Reference:            ev.Reference,
		DedupKey:             dedupKey,
		Source:               ev.Source,
		GatewayTransactionID: ev.GatewayTransactionID,
		RawStatus:            ev.RawStatus,
		Status:               ev.Status,
		PayloadJSON:          ev.PayloadJSON,
		ProcessedAt:          now,
	}
	if session != nil {
		record.SessionID = &session.ID
	}
	if err := s.webhookEventRepo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrWebhookEventAlreadyExists) {
			// Concurrent delivery inserted the ledger row first.
			return s.duplicateOutcome(ev.Reference, session), nil
		}
		return nil, err
	}

	if session == nil || ev.Status == "" {
		return &WebhookOutcome{Outcome: OutcomeIgnored, Reference: ev.Reference}, nil
	}

	transition := TransitionEvent{To: ev.Status, Source: ev.Source}
	if ev.GatewayTransactionID != "" {
		txnID := ev.GatewayTransactionID
		transition.GatewayTransactionID = &txnID
	}

	updated, applied, err := s.Transition(ctx, ev.Reference, transition)
	if errors.Is(err, ErrConflict) {
		s.logger.WithFields(map[string]interface{}{
			"reference": ev.Reference,
			"current":   string(session.Status),
			"requested": string(ev.Status),
			"source":    ev.Source,
		}).Warn("Webhook transition conflicts with terminal status")
		return &WebhookOutcome{Outcome: OutcomeConflict, Reference: ev.Reference, Status: session.Status}, nil
	}
	if err != nil {
		return nil, err
	}
	if !applied {
		return &WebhookOutcome{Outcome: OutcomeNoop, Reference: ev.Reference, Status: updated.Status}, nil
	}

	if updated.Status == entity.StatusCompleted {
		s.reconcileCompletedSession(ctx, updated)
	}
	if updated.Status == entity.StatusCompleted || updated.Status == entity.StatusFailed {
		s.enqueueTransitionNotifications(ctx, updated)
	}

	return &WebhookOutcome{Outcome: OutcomeApplied, Reference: ev.Reference, Status: updated.Status}, nil
}

func (s *PaymentService) duplicateOutcome(reference string, session *entity.PaymentSession) *WebhookOutcome {
	outcome := &WebhookOutcome{Outcome: OutcomeDuplicate, Reference: reference, Duplicate: true}
	if session != nil {
		outcome.Status = session.Status
	}
	return outcome
}

func (s *PaymentService) authenticateWebhook(req *types.GatewayWebhookRequest) error {
	sharedKey := strings.TrimSpace(s.webhookCfg.SharedKey)
	if sharedKey != "" && req.SharedKey != "" && hmac.Equal([]byte(req.SharedKey), []byte(sharedKey)) {
		return nil
	}

	if verifyGatewaySignature(req.RawBody, req.Signature, s.webhookCfg.SigningSecret, s.webhookCfg.SignatureToleranceSeconds) {
		return nil
	}

	return ErrUnauthorized
}

func webhookDedupKey(reference, gatewayTransactionID string, status entity.SessionStatus) string {
	sum := sha256.Sum256([]byte(reference + "|" + gatewayTransactionID + "|" + string(status)))
	return hex.EncodeToString(sum[:])
}

// verifyGatewaySignature checks a `t=<unix-seconds>, v1=<hex-hmac>` header
// against the exact raw bytes received over the wire. The timestamp bounds
// replay: a stale signature is rejected even when the hash matches.
func verifyGatewaySignature(payload []byte, signatureHeader, signingSecret string, toleranceSeconds int64) bool {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" || strings.TrimSpace(signingSecret) == "" {
		return false
	}
	if toleranceSeconds <= 0 {
		toleranceSeconds = 300
	}

	parts := strings.Split(signatureHeader, ",")
	var ts string
	v1 := make([]string, 0, 1)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "t=") {
			ts = strings.TrimSpace(strings.TrimPrefix(part, "t="))
		}
		if strings.HasPrefix(part, "v1=") {
			v1 = append(v1, strings.TrimSpace(strings.TrimPrefix(part, "v1=")))
		}
	}
	if ts == "" || len(v1) == 0 {
		return false
	}

	tsUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	now := time.Now().Unix()
	if now-tsUnix > toleranceSeconds || tsUnix-now > toleranceSeconds {
		return false
	}

	signedPayload := []byte(ts + "." + string(payload))
	mac := hmac.New(sha256.New, []byte(signingSecret))
	_, _ = mac.Write(signedPayload)
	expected := mac.Sum(nil)

	for _, sig := range v1 {
		candidate, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(candidate, expected) {
			return true
		}
	}

	return false
}
