package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
)

const (
	eventPaymentCompleted = "payment_completed"
	eventPaymentFailed    = "payment_failed"
)

// enqueueTransitionNotifications creates pending notification rows for a
// transition into a terminal user-visible status. The dedup key guard means
// a replayed webhook never produces a second visible notice; only failed
// deliveries may be enqueued again. Delivery itself happens in the dispatch
// job, never inline with the triggering request.
func (s *PaymentService) enqueueTransitionNotifications(ctx context.Context, session *entity.PaymentSession) {
	eventType := ""
	switch session.Status {
	case entity.StatusCompleted:
		eventType = eventPaymentCompleted
	case entity.StatusFailed:
		eventType = eventPaymentFailed
	default:
		return
	}

	recipients := []string{session.UserID}
	if admin := strings.TrimSpace(s.paymentsCfg.AdminRecipient); admin != "" {
		recipients = append(recipients, admin)
	}

	now := time.Now().UTC()
	for _, recipient := range recipients {
		dedupKey := notificationDedupKey(eventType, session.Reference, recipient)

		existing, err := s.notificationRepo.FindActiveByDedupKey(ctx, dedupKey)
		if err != nil {
			s.logger.WithError(err).WithField("dedup_key", dedupKey).Warn("Notification dedup lookup failed")
			continue
		}
		if existing != nil {
			continue
		}

		nextAt := now
		if err := s.notificationRepo.Create(ctx, &entity.Notification{
			EventType:     eventType,
			Recipient:     recipient,
			Reference:     session.Reference,
			DedupKey:      dedupKey,
			Status:        entity.NotificationPending,
			NextAttemptAt: &nextAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		}); err != nil {
			s.logger.WithError(err).WithField("dedup_key", dedupKey).Warn("Notification enqueue failed")
		}
	}
}

func (s *PaymentService) RunDispatchNotificationsBatch(ctx context.Context) error {
	now := time.Now().UTC()
	items, err := s.notificationRepo.ListDueDispatch(ctx, now, s.notifyBatchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, notification := range items {
		if notification == nil {
			continue
		}
		if err := s.dispatchNotification(ctx, notification, now); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func (s *PaymentService) dispatchNotification(ctx context.Context, notification *entity.Notification, now time.Time) error {
	deliveryURL := strings.TrimSpace(s.paymentsCfg.NotificationURL)
	if deliveryURL == "" {
		errMsg := "notification url is empty"
		notification.Status = entity.NotificationFailed
		notification.NextAttemptAt = nil
		notification.LastError = &errMsg
		notification.UpdatedAt = now
		return s.notificationRepo.Update(ctx, notification)
	}

	body, err := json.Marshal(map[string]string{
		"event_type": notification.EventType,
		"recipient":  notification.Recipient,
		"reference":  notification.Reference,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deliveryURL, bytes.NewReader(body))
	if err != nil {
		return s.recordDispatchFailure(ctx, notification, now, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.appAPIKey != "" {
		req.Header.Set("X-API-Key", s.appAPIKey)
	}

	resp, err := s.notifyHTTP.Do(req)
	if err != nil {
		return s.recordDispatchFailure(ctx, notification, now, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.recordDispatchFailure(ctx, notification, now, fmt.Errorf("notification endpoint returned status=%d", resp.StatusCode))
	}

	notification.Status = entity.NotificationSent
	notification.NextAttemptAt = nil
	notification.LastError = nil
	notification.UpdatedAt = now

	return s.notificationRepo.Update(ctx, notification)
}

func (s *PaymentService) recordDispatchFailure(ctx context.Context, notification *entity.Notification, now time.Time, dispatchErr error) error {
	notification.Attempts++
	trimmed := truncate(dispatchErr.Error(), 1024)
	notification.LastError = &trimmed

	maxAttempts := s.paymentsCfg.NotifyMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	if notification.Attempts >= maxAttempts {
		notification.Status = entity.NotificationFailed
		notification.NextAttemptAt = nil
	} else {
		retryInterval := s.paymentsCfg.NotifyRetryInterval
		if retryInterval <= 0 {
			retryInterval = 5 * time.Minute
		}
		next := now.Add(retryInterval)
		notification.Status = entity.NotificationPending
		notification.NextAttemptAt = &next
	}
	notification.UpdatedAt = now

	if err := s.notificationRepo.Update(ctx, notification); err != nil {
		return err
	}

	return dispatchErr
}

func (s *PaymentService) notifyBatchSize() int32 {
	if s.paymentsCfg.NotifyBatchSize > 0 {
		return s.paymentsCfg.NotifyBatchSize
	}
	return defaultNotifyBatchSize
}

func notificationDedupKey(eventType, reference, recipient string) string {
	return eventType + ":" + reference + ":" + recipient
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
