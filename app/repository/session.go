package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
)

var (
	ErrSessionNotFound      = errors.New("payment session not found")
	ErrSessionAlreadyExists = errors.New("payment session already exists")
)

const sessionColumns = `
	id, reference, user_id, amount_cents, currency, provider, phone_number,
	status, pending_order_json, gateway_transaction_id, checkout_url,
	created_at, updated_at, completed_at
`

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *entity.PaymentSession) error {
	query := `
		INSERT INTO payment_sessions (
			reference, user_id, amount_cents, currency, provider, phone_number,
			status, pending_order_json, gateway_transaction_id, checkout_url,
			created_at, updated_at, completed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		session.Reference,
		session.UserID,
		session.AmountCents,
		session.Currency,
		session.Provider,
		session.PhoneNumber,
		string(session.Status),
		session.PendingOrderJSON,
		nullableStringValue(session.GatewayTransactionID),
		nullableStringValue(session.CheckoutURL),
		session.CreatedAt,
		session.UpdatedAt,
		nullableTimeValue(session.CompletedAt),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrSessionAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	session.ID = uint64(id)
	return nil
}

func (r *SessionRepository) FindByReference(ctx context.Context, reference string) (*entity.PaymentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE reference = ?`

	session := &entity.PaymentSession{}
	if err := scanSession(r.db.QueryRowContext(ctx, query, reference), session); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return session, nil
}

// TransitionStatus applies the status change only when the row still holds
// the expected current status. It reports whether the write landed; a false
// return means another producer moved the session first and the caller must
// re-read to classify the race.
func (r *SessionRepository) TransitionStatus(
	ctx context.Context,
	reference string,
	from, to entity.SessionStatus,
	gatewayTransactionID *string,
	now time.Time,
) (bool, error) {
	var completedAt interface{}
	if to == entity.StatusCompleted {
		completedAt = now
	}

	query := `
		UPDATE payment_sessions SET
			status = ?,
			gateway_transaction_id = COALESCE(?, gateway_transaction_id),
			completed_at = COALESCE(?, completed_at),
			updated_at = ?
		WHERE reference = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(to),
		nullableStringValue(gatewayTransactionID),
		completedAt,
		now,
		reference,
		string(from),
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListStuckProcessing returns processing sessions untouched since cutoff,
// most stale first, bounded by limit.
func (r *SessionRepository) ListStuckProcessing(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.PaymentSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM payment_sessions
		WHERE status = ? AND updated_at < ?
		ORDER BY updated_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, string(entity.StatusProcessing), cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*entity.PaymentSession, 0)
	for rows.Next() {
		item := &entity.PaymentSession{}
		if err := scanSession(rows, item); err != nil {
			return nil, err
		}
		sessions = append(sessions, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(scan rowScanner, session *entity.PaymentSession) error {
	var status string
	var gatewayTransactionID sql.NullString
	var checkoutURL sql.NullString
	var completedAt sql.NullTime

	err := scan.Scan(
		&session.ID,
		&session.Reference,
		&session.UserID,
		&session.AmountCents,
		&session.Currency,
		&session.Provider,
		&session.PhoneNumber,
		&status,
		&session.PendingOrderJSON,
		&gatewayTransactionID,
		&checkoutURL,
		&session.CreatedAt,
		&session.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return err
	}

	session.Status = entity.SessionStatus(status)
	session.GatewayTransactionID = stringPtrFromNull(gatewayTransactionID)
	session.CheckoutURL = stringPtrFromNull(checkoutURL)
	session.CompletedAt = timePtrFromNull(completedAt)

	return nil
}
