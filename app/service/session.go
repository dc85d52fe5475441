package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-momo/app/entity"
	"github.com/vibast-solutions/ms-go-momo/app/factory"
	"github.com/vibast-solutions/ms-go-momo/app/gateway"
	"github.com/vibast-solutions/ms-go-momo/app/repository"
	"github.com/vibast-solutions/ms-go-momo/app/types"
	"github.com/vibast-solutions/ms-go-momo/config"
)

const (
	defaultMonitorBatchSize = int32(10)
	defaultNotifyBatchSize  = int32(100)
)

type sessionRepository interface {
	Create(ctx context.Context, session *entity.PaymentSession) error
	FindByReference(ctx context.Context, reference string) (*entity.PaymentSession, error)
	TransitionStatus(ctx context.Context, reference string, from, to entity.SessionStatus, gatewayTransactionID *string, now time.Time) (bool, error)
	ListStuckProcessing(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.PaymentSession, error)
}

type sessionEventRepository interface {
	Create(ctx context.Context, event *entity.SessionEvent) error
}

type webhookEventRepository interface {
	Create(ctx context.Context, event *entity.WebhookEvent) error
	FindByDedupKey(ctx context.Context, dedupKey string) (*entity.WebhookEvent, error)
}

type notificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	Update(ctx context.Context, notification *entity.Notification) error
	FindActiveByDedupKey(ctx context.Context, dedupKey string) (*entity.Notification, error)
	ListDueDispatch(ctx context.Context, now time.Time, limit int32) ([]*entity.Notification, error)
}

type orderRepository interface {
	FindRecentPaidOrder(ctx context.Context, userID string, amountCents int64, from, to time.Time) (*entity.Order, error)
}

type PaymentService struct {
	sessionRepo      sessionRepository
	eventRepo        sessionEventRepository
	webhookEventRepo webhookEventRepository
	notificationRepo notificationRepository
	orderRepo        orderRepository
	gatewayReg       *gateway.Registry
	paymentsCfg      config.PaymentsConfig
	webhookCfg       config.WebhookConfig
	appAPIKey        string
	notifyHTTP       *http.Client
	logger           logrus.FieldLogger
}

func NewPaymentService(
	sessionRepo sessionRepository,
	eventRepo sessionEventRepository,
	webhookEventRepo webhookEventRepository,
	notificationRepo notificationRepository,
	orderRepo orderRepository,
	gatewayReg *gateway.Registry,
	paymentsCfg config.PaymentsConfig,
	webhookCfg config.WebhookConfig,
	appAPIKey string,
) *PaymentService {
	timeout := paymentsCfg.NotifyHTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &PaymentService{
		sessionRepo:      sessionRepo,
		eventRepo:        eventRepo,
		webhookEventRepo: webhookEventRepo,
		notificationRepo: notificationRepo,
		orderRepo:        orderRepo,
		gatewayReg:       gatewayReg,
		paymentsCfg:      paymentsCfg,
		webhookCfg:       webhookCfg,
		appAPIKey:        appAPIKey,
		notifyHTTP:       &http.Client{Timeout: timeout},
		logger:           factory.NewModuleLogger("payments-service"),
	}
}

func (s *PaymentService) InitiatePayment(ctx context.Context, req *types.InitiatePaymentRequest) (*entity.PaymentSession, error) {
	if req.UserID == "" || req.Amount <= 0 || req.PhoneNumber == "" {
		return nil, ErrInvalidRequest
	}

	client, err := s.gatewayReg.Get(req.Provider)
	if err != nil {
		if errors.Is(err, gateway.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	reference := uuid.NewString()
	output, err := client.CreateOrder(ctx, &gateway.CreateOrderInput{
		Reference:   reference,
		AmountCents: req.Amount,
		Currency:    req.Currency,
		PhoneNumber: req.PhoneNumber,
		UserID:      req.UserID,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			return nil, ErrGatewayUnavailable
		}
		return nil, err
	}

	status := output.InitialStatus
	if !status.Valid() || status.Terminal() {
		status = entity.StatusPending
	}

	orderJSON := "{}"
	if len(req.OrderData) > 0 {
		orderJSON = string(req.OrderData)
	}

	now := time.Now().UTC()
	session := &entity.PaymentSession{
		Reference:            reference,
		UserID:               req.UserID,
		AmountCents:          req.Amount,
		Currency:             req.Currency,
		Provider:             client.Name(),
		PhoneNumber:          req.PhoneNumber,
		Status:               status,
		PendingOrderJSON:     orderJSON,
		GatewayTransactionID: output.GatewayTransactionID,
		CheckoutURL:          output.CheckoutURL,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrSessionAlreadyExists) {
			return nil, ErrSessionExists
		}
		return nil, err
	}

	_ = s.eventRepo.Create(ctx, &entity.SessionEvent{
		SessionID: session.ID,
		EventType: "session_created",
		NewStatus: session.Status,
		Source:    entity.SourceGateway,
		CreatedAt: now,
	})

	return session, nil
}

func (s *PaymentService) GetSession(ctx context.Context, reference string) (*entity.PaymentSession, error) {
	session, err := s.sessionRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// GetPaymentStatus returns the session plus the reconciler's best-effort
// order match. A nil order is a normal outcome, not an error.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, req *types.PaymentStatusRequest) (*entity.PaymentSession, *entity.Order, error) {
	session, err := s.GetSession(ctx, req.Reference)
	if err != nil {
		return nil, nil, err
	}

	order, err := s.FindOrderForSession(ctx, session)
	if err != nil {
		s.logger.WithError(err).WithField("reference", session.Reference).Warn("Order reconciliation lookup failed")
		return session, nil, nil
	}

	return session, order, nil
}

func marshalJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
