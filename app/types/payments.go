package types

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

type InitiatePaymentRequest struct {
	UserID      string          `json:"user_id"`
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency"`
	Provider    string          `json:"provider"`
	PhoneNumber string          `json:"phone_number"`
	OrderData   json.RawMessage `json:"order_data"`
}

func NewInitiatePaymentRequestFromContext(ctx echo.Context) (*InitiatePaymentRequest, error) {
	var body InitiatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.UserID = strings.TrimSpace(body.UserID)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.Provider = strings.ToLower(strings.TrimSpace(body.Provider))
	body.PhoneNumber = strings.TrimSpace(body.PhoneNumber)

	return &body, nil
}

func (r *InitiatePaymentRequest) Validate() error {
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be > 0")
	}
	if len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if r.Provider == "" {
		return errors.New("provider is required")
	}
	if r.PhoneNumber == "" {
		return errors.New("phone_number is required")
	}
	return nil
}

type PaymentStatusRequest struct {
	Reference string `json:"reference"`
}

func NewPaymentStatusRequestFromContext(ctx echo.Context) (*PaymentStatusRequest, error) {
	var body PaymentStatusRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Reference = strings.TrimSpace(body.Reference)
	if body.Reference == "" {
		body.Reference = strings.TrimSpace(ctx.Param("reference"))
	}
	return &body, nil
}

func (r *PaymentStatusRequest) Validate() error {
	if r.Reference == "" {
		return errors.New("reference is required")
	}
	return nil
}

// GatewayWebhookRequest keeps the exact raw bytes received on the wire; the
// HMAC signature is computed over those bytes, so the body must never be
// re-serialized before verification.
type GatewayWebhookRequest struct {
	RawBody   []byte
	SharedKey string
	Signature string
}

func NewGatewayWebhookRequestFromContext(ctx echo.Context) (*GatewayWebhookRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	return &GatewayWebhookRequest{
		RawBody:   rawBody,
		SharedKey: strings.TrimSpace(ctx.Request().Header.Get("X-Webhook-Key")),
		Signature: strings.TrimSpace(ctx.Request().Header.Get("X-Gateway-Signature")),
	}, nil
}

func (r *GatewayWebhookRequest) Validate() error {
	if len(r.RawBody) == 0 {
		return errors.New("payload is required")
	}
	return nil
}

type AdminReplayRequest struct {
	Reference            string `json:"reference"`
	Status               string `json:"status"`
	GatewayTransactionID string `json:"gateway_transaction_id"`
}

func NewAdminReplayRequestFromContext(ctx echo.Context) (*AdminReplayRequest, error) {
	var body AdminReplayRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Reference = strings.TrimSpace(body.Reference)
	body.Status = strings.TrimSpace(body.Status)
	body.GatewayTransactionID = strings.TrimSpace(body.GatewayTransactionID)
	return &body, nil
}

func (r *AdminReplayRequest) Validate() error {
	if r.Reference == "" {
		return errors.New("reference is required")
	}
	if r.Status == "" {
		return errors.New("status is required")
	}
	return nil
}

type Session struct {
	Reference            string `json:"transaction_reference"`
	UserID               string `json:"user_id"`
	Amount               int64  `json:"amount"`
	Currency             string `json:"currency"`
	Provider             string `json:"provider"`
	Status               string `json:"status"`
	GatewayTransactionID string `json:"gateway_transaction_id,omitempty"`
	CheckoutURL          string `json:"checkout_url,omitempty"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
	CompletedAt          string `json:"completed_at,omitempty"`
}

type SessionEnvelopeResponse struct {
	Session *Session `json:"session"`
}

type PaymentStatusResponse struct {
	Reference string  `json:"reference"`
	Status    string  `json:"status"`
	OrderID   *uint64 `json:"order_id"`
}

type WebhookAckResponse struct {
	Message   string `json:"message"`
	Outcome   string `json:"outcome"`
	Reference string `json:"reference,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

type MonitorResult struct {
	Reference  string `json:"reference"`
	AgeSeconds int64  `json:"age_seconds"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
}

type MonitorResponse struct {
	Results []MonitorResult `json:"results"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
