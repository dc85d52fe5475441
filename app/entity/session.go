package entity

import "time"

// PaymentSession is one payment attempt against the mobile-money gateway,
// identified by a caller- and gateway-visible reference. Sessions are never
// hard-deleted; terminal rows stay for audit.
type PaymentSession struct {
	ID uint64

	Reference string
	UserID    string

	AmountCents int64
	Currency    string
	Provider    string
	PhoneNumber string

	Status SessionStatus

	// PendingOrderJSON carries the opaque order payload (items, shipping
	// address) needed to create the order once payment is confirmed.
	PendingOrderJSON string

	GatewayTransactionID *string
	CheckoutURL          *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}
