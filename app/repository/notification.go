package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
)

var ErrNotificationNotFound = errors.New("notification not found")

const notificationColumns = `
	id, event_type, recipient, reference, dedup_key, status, attempts,
	next_attempt_at, last_error, created_at, updated_at
`

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	query := `
		INSERT INTO notifications (
			event_type, recipient, reference, dedup_key, status, attempts,
			next_attempt_at, last_error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		notification.EventType,
		notification.Recipient,
		notification.Reference,
		notification.DedupKey,
		notification.Status,
		notification.Attempts,
		nullableTimeValue(notification.NextAttemptAt),
		nullableStringValue(notification.LastError),
		notification.CreatedAt,
		notification.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	notification.ID = uint64(id)

	return nil
}

func (r *NotificationRepository) Update(ctx context.Context, notification *entity.Notification) error {
	query := `
		UPDATE notifications SET
			status = ?,
			attempts = ?,
			next_attempt_at = ?,
			last_error = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		notification.Status,
		notification.Attempts,
		nullableTimeValue(notification.NextAttemptAt),
		nullableStringValue(notification.LastError),
		notification.UpdatedAt,
		notification.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// FindActiveByDedupKey returns the newest non-failed row for the key. Failed
// rows do not count: a failed delivery may be enqueued again.
func (r *NotificationRepository) FindActiveByDedupKey(ctx context.Context, dedupKey string) (*entity.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE dedup_key = ? AND status != ?
		ORDER BY id DESC
		LIMIT 1
	`

	notification := &entity.Notification{}
	if err := scanNotification(r.db.QueryRowContext(ctx, query, dedupKey, entity.NotificationFailed), notification); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return notification, nil
}

func (r *NotificationRepository) ListDueDispatch(ctx context.Context, now time.Time, limit int32) ([]*entity.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status = ?
		  AND next_attempt_at IS NOT NULL
		  AND next_attempt_at <= ?
		ORDER BY next_attempt_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, entity.NotificationPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*entity.Notification, 0)
	for rows.Next() {
		item := &entity.Notification{}
		if err := scanNotification(rows, item); err != nil {
			return nil, err
		}
		notifications = append(notifications, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

func scanNotification(scan rowScanner, notification *entity.Notification) error {
	var nextAttemptAt sql.NullTime
	var lastError sql.NullString

	err := scan.Scan(
		&notification.ID,
		&notification.EventType,
		&notification.Recipient,
		&notification.Reference,
		&notification.DedupKey,
		&notification.Status,
		&notification.Attempts,
		&nextAttemptAt,
		&lastError,
		&notification.CreatedAt,
		&notification.UpdatedAt,
	)
	if err != nil {
		return err
	}

	notification.NextAttemptAt = timePtrFromNull(nextAttemptAt)
	notification.LastError = stringPtrFromNull(lastError)

	return nil
}
