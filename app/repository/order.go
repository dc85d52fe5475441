package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
)

// OrderRepository reads the order table owned by the order-creation flow.
// This service never writes orders.
type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindRecentPaidOrder returns the most recent paid order for the user with an
// exactly matching amount created inside [from, to), or nil when none exists.
func (r *OrderRepository) FindRecentPaidOrder(
	ctx context.Context,
	userID string,
	amountCents int64,
	from, to time.Time,
) (*entity.Order, error) {
	query := `
		SELECT id, user_id, total_amount_cents, payment_status, created_at
		FROM orders
		WHERE user_id = ?
		  AND total_amount_cents = ?
		  AND payment_status = ?
		  AND created_at >= ?
		  AND created_at < ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	order := &entity.Order{}
	err := r.db.QueryRowContext(ctx, query,
		userID,
		amountCents,
		entity.OrderPaymentStatusPaid,
		from,
		to,
	).Scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmountCents,
		&order.PaymentStatus,
		&order.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return order, nil
}
