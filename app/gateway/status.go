package gateway

import (
	"strings"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
)

// ParseStatus maps the gateway's status vocabulary onto the internal enum.
// The second return is false for vocabulary this service does not know.
func ParseStatus(raw string) (entity.SessionStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "COMPLETED", "SUCCESS", "SUCCESSFUL", "SETTLED":
		return entity.StatusCompleted, true
	case "FAILED", "FAILURE", "CANCELLED", "CANCELED", "REJECTED", "DECLINED":
		return entity.StatusFailed, true
	case "PENDING", "PROCESSING", "INITIATED", "AUTHORIZED":
		return entity.StatusProcessing, true
	case "EXPIRED", "TIMEOUT", "TIMED_OUT":
		return entity.StatusExpired, true
	default:
		return "", false
	}
}
