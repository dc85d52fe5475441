package gateway

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
)

// ErrUnavailable marks transport-level failures talking to the gateway
// (network errors, timeouts, 5xx). Callers may retry.
var ErrUnavailable = errors.New("payment gateway unavailable")

type CreateOrderInput struct {
	Reference   string
	AmountCents int64
	Currency    string
	PhoneNumber string
	UserID      string
}

type CreateOrderOutput struct {
	GatewayTransactionID *string
	CheckoutURL          *string
	InitialStatus        entity.SessionStatus
}

// Client is the outbound contract with a mobile-money gateway. The service
// depends only on these response shapes.
type Client interface {
	Name() string
	CreateOrder(ctx context.Context, input *CreateOrderInput) (*CreateOrderOutput, error)
	GetOrderStatus(ctx context.Context, reference string) (entity.SessionStatus, error)
}
