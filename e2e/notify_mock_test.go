//go:build e2e
// +build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
)

const (
	defaultMomoAppAPIKey     = "momo-app-api-key"
	defaultMomoWebhookKey    = "momo-webhook-shared-key"
	defaultMomoAdminSecret   = "momo-admin-secret"
	momoNotificationSinkAddr = "0.0.0.0:38085"
)

func momoAppAPIKey() string {
	if value := strings.TrimSpace(os.Getenv("APP_API_KEY")); value != "" {
		return value
	}
	return defaultMomoAppAPIKey
}

func momoWebhookKey() string {
	if value := strings.TrimSpace(os.Getenv("WEBHOOK_SHARED_KEY")); value != "" {
		return value
	}
	return defaultMomoWebhookKey
}

func momoAdminSecret() string {
	if value := strings.TrimSpace(os.Getenv("APP_ADMIN_SECRET")); value != "" {
		return value
	}
	return defaultMomoAdminSecret
}

// notificationSink is the stand-in for the downstream notification service.
// The dispatch job posts terminal-transition notices here; tests can inspect
// what was delivered.
type notificationSink struct {
	mu       sync.Mutex
	received []map[string]string
}

func (s *notificationSink) handler(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-API-Key") != momoAppAPIKey() {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload map[string]string
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.received = append(s.received, payload)
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *notificationSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

var sink = &notificationSink{}

func TestMain(m *testing.M) {
	if os.Getenv("APP_API_KEY") == "" {
		_ = os.Setenv("APP_API_KEY", defaultMomoAppAPIKey)
	}
	if os.Getenv("WEBHOOK_SHARED_KEY") == "" {
		_ = os.Setenv("WEBHOOK_SHARED_KEY", defaultMomoWebhookKey)
	}
	if os.Getenv("APP_ADMIN_SECRET") == "" {
		_ = os.Setenv("APP_ADMIN_SECRET", defaultMomoAdminSecret)
	}

	listener, err := net.Listen("tcp", momoNotificationSinkAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start notification sink: %v\n", err)
		os.Exit(1)
	}

	server := &http.Server{Handler: http.HandlerFunc(sink.handler)}
	go func() {
		_ = server.Serve(listener)
	}()

	exitCode := m.Run()

	_ = server.Close()
	_ = listener.Close()

	os.Exit(exitCode)
}
