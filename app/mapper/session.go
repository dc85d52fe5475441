package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
	"github.com/vibast-solutions/ms-go-momo/app/types"
)

func SessionToResponse(item *entity.PaymentSession) *types.Session {
	if item == nil {
		return nil
	}

	completedAt := ""
	if item.CompletedAt != nil {
		completedAt = item.CompletedAt.UTC().Format(time.RFC3339)
	}

	return &types.Session{
		Reference:            item.Reference,
		UserID:               item.UserID,
		Amount:               item.AmountCents,
		Currency:             item.Currency,
		Provider:             item.Provider,
		Status:               string(item.Status),
		GatewayTransactionID: derefString(item.GatewayTransactionID),
		CheckoutURL:          derefString(item.CheckoutURL),
		CreatedAt:            item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:            item.UpdatedAt.UTC().Format(time.RFC3339),
		CompletedAt:          completedAt,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
