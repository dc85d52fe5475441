package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
	"github.com/vibast-solutions/ms-go-momo/app/gateway"
	"github.com/vibast-solutions/ms-go-momo/app/types"
)

func TestInitiatePaymentCreatesSessionAndEvent(t *testing.T) {
	f := newTestFixture(defaultPaymentsConfig())

	session, err := f.svc.InitiatePayment(context.Background(), &types.InitiatePaymentRequest{
		UserID:      "user-1",
		Amount:      150000,
		Currency:    "TZS",
		Provider:    "clickpesa",
		PhoneNumber: "+255700000001",
		OrderData:   []byte(`{"cart_id":"cart-1"}`),
	})
	if err != nil {
		t.Fatalf("initiate payment failed: %v", err)
	}
	if session.Reference == "" {
		t.Fatal("expected generated reference")
	}
	if session.Status != entity.StatusProcessing {
		t.Fatalf("expected processing status from gateway, got %s", session.Status)
	}
	if session.GatewayTransactionID == nil || *session.GatewayTransactionID == "" {
		t.Fatal("expected gateway transaction id")
	}
	if session.CheckoutURL == nil || *session.CheckoutURL == "" {
		t.Fatal("expected checkout url")
	}
	if session.PendingOrderJSON != `{"cart_id":"cart-1"}` {
		t.Fatalf("expected pending order payload preserved, got %s", session.PendingOrderJSON)
	}

	stored, _ := f.sessionRepo.FindByReference(context.Background(), session.Reference)
	if stored == nil {
		t.Fatal("expected session persisted")
	}
	if len(f.eventRepo.events) != 1 || f.eventRepo.events[0].EventType != "session_created" {
		t.Fatalf("expected one session_created event, got %d", len(f.eventRepo.events))
	}
}

func TestInitiatePaymentUnknownProvider(t *testing.T) {
	f := newTestFixture(defaultPaymentsConfig())

	_, err := f.svc.InitiatePayment(context.Background(), &types.InitiatePaymentRequest{
		UserID:      "user-1",
		Amount:      150000,
		Currency:    "TZS",
		Provider:    "mpesa-direct",
		PhoneNumber: "+255700000001",
	})
	if !errors.Is(err, ErrProviderUnsupported) {
		t.Fatalf("expected ErrProviderUnsupported, got %v", err)
	}
}

func TestInitiatePaymentGatewayDownNoSessionPersisted(t *testing.T) {
	f := newTestFixture(defaultPaymentsConfig())
	f.client.createErr = gateway.ErrUnavailable

	_, err := f.svc.InitiatePayment(context.Background(), &types.InitiatePaymentRequest{
		UserID:      "user-1",
		Amount:      150000,
		Currency:    "TZS",
		Provider:    "clickpesa",
		PhoneNumber: "+255700000001",
	})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if len(f.sessionRepo.sessions) != 0 {
		t.Fatalf("expected no session persisted, got %d", len(f.sessionRepo.sessions))
	}
}

func TestInitiatePaymentRejectsTerminalInitialStatus(t *testing.T) {
	f := newTestFixture(defaultPaymentsConfig())
	f.client.createOut = &gateway.CreateOrderOutput{InitialStatus: entity.StatusCompleted}

	session, err := f.svc.InitiatePayment(context.Background(), &types.InitiatePaymentRequest{
		UserID:      "user-1",
		Amount:      150000,
		Currency:    "TZS",
		Provider:    "clickpesa",
		PhoneNumber: "+255700000001",
	})
	if err != nil {
		t.Fatalf("initiate payment failed: %v", err)
	}
	if session.Status != entity.StatusPending {
		t.Fatalf("expected pending status, got %s", session.Status)
	}
}

func TestGetPaymentStatusUnknownReference(t *testing.T) {
	f := newTestFixture(defaultPaymentsConfig())

	_, _, err := f.svc.GetPaymentStatus(context.Background(), &types.PaymentStatusRequest{Reference: "missing"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
