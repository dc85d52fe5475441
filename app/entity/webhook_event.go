package entity

import "time"

// Event sources that can enter the webhook ingestion path.
const (
	SourceGateway = "gateway"
	SourceMonitor = "monitor"
	SourceAdmin   = "admin"
)

// WebhookEvent is the append-only ledger of inbound callbacks. DedupKey is
// unique; a second insert with the same key identifies a gateway retry.
// Rows are never updated or deleted.
type WebhookEvent struct {
	ID uint64

	SessionID *uint64
	Reference string

	DedupKey             string
	Source               string
	GatewayTransactionID string
	RawStatus            string
	Status               SessionStatus

	PayloadJSON string

	ProcessedAt time.Time
}
