package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
)

var ErrWebhookEventAlreadyExists = errors.New("webhook event already exists")

type WebhookEventRepository struct {
	db DBTX
}

func NewWebhookEventRepository(db DBTX) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Create(ctx context.Context, event *entity.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (
			session_id, reference, dedup_key, source, gateway_transaction_id,
			raw_status, status, payload_json, processed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var sessionID interface{}
	if event.SessionID != nil {
		sessionID = *event.SessionID
	}

	result, err := r.db.ExecContext(ctx, query,
		sessionID,
		event.Reference,
		event.DedupKey,
		event.Source,
		event.GatewayTransactionID,
		event.RawStatus,
		string(event.Status),
		event.PayloadJSON,
		event.ProcessedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrWebhookEventAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}

func (r *WebhookEventRepository) FindByDedupKey(ctx context.Context, dedupKey string) (*entity.WebhookEvent, error) {
	query := `
		SELECT id, session_id, reference, dedup_key, source, gateway_transaction_id,
			raw_status, status, payload_json, processed_at
		FROM webhook_events
		WHERE dedup_key = ?
		LIMIT 1
	`

	event := &entity.WebhookEvent{}
	var sessionID sql.NullInt64
	var status string

	err := r.db.QueryRowContext(ctx, query, dedupKey).Scan(
		&event.ID,
		&sessionID,
		&event.Reference,
		&event.DedupKey,
		&event.Source,
		&event.GatewayTransactionID,
		&status,
		&event.PayloadJSON,
		&event.ProcessedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	if sessionID.Valid {
		id := uint64(sessionID.Int64)
		event.SessionID = &id
	}
	event.Status = entity.SessionStatus(status)

	return event, nil
}
