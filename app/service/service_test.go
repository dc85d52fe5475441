package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
	"github.com/vibast-solutions/ms-go-momo/app/gateway"
	"github.com/vibast-solutions/ms-go-momo/app/repository"
	"github.com/vibast-solutions/ms-go-momo/config"
)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*entity.PaymentSession
	nextID   uint64
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: map[string]*entity.PaymentSession{},
		nextID:   1,
	}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *entity.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.Reference]; ok {
		return repository.ErrSessionAlreadyExists
	}
	session.ID = r.nextID
	r.nextID++
	copyItem := *session
	r.sessions[session.Reference] = &copyItem
	return nil
}

func (r *fakeSessionRepo) FindByReference(_ context.Context, reference string) (*entity.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.sessions[reference]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *fakeSessionRepo) TransitionStatus(
	_ context.Context,
	reference string,
	from, to entity.SessionStatus,
	gatewayTransactionID *string,
	now time.Time,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.sessions[reference]
	if !ok || item.Status != from {
		return false, nil
	}
	item.Status = to
	item.UpdatedAt = now
	if gatewayTransactionID != nil {
		item.GatewayTransactionID = gatewayTransactionID
	}
	if to == entity.StatusCompleted {
		item.CompletedAt = &now
	}
	return true, nil
}

func (r *fakeSessionRepo) ListStuckProcessing(_ context.Context, cutoff time.Time, limit int32) ([]*entity.PaymentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*entity.PaymentSession, 0)
	for _, item := range r.sessions {
		if item.Status == entity.StatusProcessing && item.UpdatedAt.Before(cutoff) {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].UpdatedAt.Before(items[j].UpdatedAt) })
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

type fakeSessionEventRepo struct {
	mu     sync.Mutex
	events []*entity.SessionEvent
}

func (r *fakeSessionEventRepo) Create(_ context.Context, event *entity.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copyItem := *event
	r.events = append(r.events, &copyItem)
	return nil
}

type fakeWebhookEventRepo struct {
	mu     sync.Mutex
	events map[string]*entity.WebhookEvent

	// When set, the next Create reports a duplicate even though the dedup
	// lookup found nothing, mimicking a concurrent delivery that inserted
	// the ledger row between the two statements.
	failNextCreateAsDuplicate bool
}

func newFakeWebhookEventRepo() *fakeWebhookEventRepo {
	return &fakeWebhookEventRepo{events: map[string]*entity.WebhookEvent{}}
}

func (r *fakeWebhookEventRepo) Create(_ context.Context, event *entity.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failNextCreateAsDuplicate {
		r.failNextCreateAsDuplicate = false
		return repository.ErrWebhookEventAlreadyExists
	}
	if _, ok := r.events[event.DedupKey]; ok {
		return repository.ErrWebhookEventAlreadyExists
	}
	event.ID = uint64(len(r.events) + 1)
	copyItem := *event
	r.events[event.DedupKey] = &copyItem
	return nil
}

func (r *fakeWebhookEventRepo) FindByDedupKey(_ context.Context, dedupKey string) (*entity.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.events[dedupKey]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type fakeNotificationRepo struct {
	mu     sync.Mutex
	items  []*entity.Notification
	nextID uint64
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{nextID: 1}
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	notification.ID = r.nextID
	r.nextID++
	copyItem := *notification
	r.items = append(r.items, &copyItem)
	return nil
}

func (r *fakeNotificationRepo) Update(_ context.Context, notification *entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, item := range r.items {
		if item.ID == notification.ID {
			copyItem := *notification
			r.items[i] = &copyItem
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) FindActiveByDedupKey(_ context.Context, dedupKey string) (*entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found *entity.Notification
	for _, item := range r.items {
		if item.DedupKey == dedupKey && item.Status != entity.NotificationFailed {
			found = item
		}
	}
	if found == nil {
		return nil, nil
	}
	copyItem := *found
	return &copyItem, nil
}

func (r *fakeNotificationRepo) ListDueDispatch(_ context.Context, now time.Time, limit int32) ([]*entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*entity.Notification, 0)
	for _, item := range r.items {
		if item.Status == entity.NotificationPending && item.NextAttemptAt != nil && !item.NextAttemptAt.After(now) {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders []*entity.Order
}

func (r *fakeOrderRepo) FindRecentPaidOrder(_ context.Context, userID string, amountCents int64, from, to time.Time) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found *entity.Order
	for _, item := range r.orders {
		if item.UserID != userID || item.TotalAmountCents != amountCents || item.PaymentStatus != entity.OrderPaymentStatusPaid {
			continue
		}
		if item.CreatedAt.Before(from) || !item.CreatedAt.Before(to) {
			continue
		}
		if found == nil || item.CreatedAt.After(found.CreatedAt) {
			found = item
		}
	}
	if found == nil {
		return nil, nil
	}
	copyItem := *found
	return &copyItem, nil
}

type fakeGatewayClient struct {
	name      string
	createOut *gateway.CreateOrderOutput
	createErr error
	status    entity.SessionStatus
	statusErr error

	statusCalls int
}

func (c *fakeGatewayClient) Name() string {
	if c.name == "" {
		return "clickpesa"
	}
	return c.name
}

func (c *fakeGatewayClient) CreateOrder(context.Context, *gateway.CreateOrderInput) (*gateway.CreateOrderOutput, error) {
	if c.createErr != nil {
		return nil, c.createErr
	}
	if c.createOut != nil {
		return c.createOut, nil
	}
	txnID := "cp_txn_123"
	url := "https://clickpesa.example/checkout/cp_txn_123"
	return &gateway.CreateOrderOutput{
		GatewayTransactionID: &txnID,
		CheckoutURL:          &url,
		InitialStatus:        entity.StatusProcessing,
	}, nil
}

func (c *fakeGatewayClient) GetOrderStatus(context.Context, string) (entity.SessionStatus, error) {
	c.statusCalls++
	if c.statusErr != nil {
		return "", c.statusErr
	}
	return c.status, nil
}

type testFixture struct {
	sessionRepo      *fakeSessionRepo
	eventRepo        *fakeSessionEventRepo
	webhookEventRepo *fakeWebhookEventRepo
	notificationRepo *fakeNotificationRepo
	orderRepo        *fakeOrderRepo
	client           *fakeGatewayClient
	svc              *PaymentService
}

func defaultPaymentsConfig() config.PaymentsConfig {
	return config.PaymentsConfig{
		StuckSessionAfter:   10 * time.Minute,
		MonitorBatchSize:    10,
		ReconcileWindow:     5 * time.Minute,
		NotifyMaxAttempts:   3,
		NotifyBatchSize:     100,
		NotifyRetryInterval: time.Minute,
		NotifyHTTPTimeout:   time.Second,
	}
}

func defaultWebhookConfig() config.WebhookConfig {
	return config.WebhookConfig{
		SharedKey:                 "hook-shared-key",
		SigningSecret:             "hook-signing-secret",
		SignatureToleranceSeconds: 300,
	}
}

func newTestFixture(paymentsCfg config.PaymentsConfig) *testFixture {
	f := &testFixture{
		sessionRepo:      newFakeSessionRepo(),
		eventRepo:        &fakeSessionEventRepo{},
		webhookEventRepo: newFakeWebhookEventRepo(),
		notificationRepo: newFakeNotificationRepo(),
		orderRepo:        &fakeOrderRepo{},
		client:           &fakeGatewayClient{},
	}
	f.svc = NewPaymentService(
		f.sessionRepo,
		f.eventRepo,
		f.webhookEventRepo,
		f.notificationRepo,
		f.orderRepo,
		gateway.NewRegistry(f.client),
		paymentsCfg,
		defaultWebhookConfig(),
		"momo-app-key",
	)
	return f
}

func (f *testFixture) seedSession(reference string, status entity.SessionStatus, age time.Duration) *entity.PaymentSession {
	now := time.Now().UTC().Add(-age)
	session := &entity.PaymentSession{
		Reference:        reference,
		UserID:           "user-1",
		AmountCents:      150000,
		Currency:         "TZS",
		Provider:         "clickpesa",
		PhoneNumber:      "+255700000001",
		Status:           status,
		PendingOrderJSON: "{}",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	_ = f.sessionRepo.Create(context.Background(), session)
	return session
}
