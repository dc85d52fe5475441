package entity

import "time"

const OrderPaymentStatusPaid = "paid"

// Order is a read-only projection of the order table owned by the
// order-creation flow. There is no stored foreign key to PaymentSession;
// the reconciler infers the link.
type Order struct {
	ID uint64

	UserID           string
	TotalAmountCents int64
	PaymentStatus    string

	CreatedAt time.Time
}
