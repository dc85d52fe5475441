package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-momo/app/entity"
)

func TestClickPesaCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/third-parties/payments/initiate-ussd-push-request", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "ref-1", payload["orderReference"])
		require.Equal(t, "TZS", payload["currency"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cp_txn_1","status":"PROCESSING","checkoutUrl":"https://clickpesa.example/c/1"}`))
	}))
	defer server.Close()

	client := NewClickPesaClient(ClickPesaConfig{BaseURL: server.URL, APIKey: "test-key"})
	out, err := client.CreateOrder(context.Background(), &CreateOrderInput{
		Reference:   "ref-1",
		AmountCents: 150000,
		Currency:    "tzs",
		PhoneNumber: "+255700000001",
	})
	require.NoError(t, err)
	require.NotNil(t, out.GatewayTransactionID)
	require.Equal(t, "cp_txn_1", *out.GatewayTransactionID)
	require.NotNil(t, out.CheckoutURL)
	require.Equal(t, entity.StatusProcessing, out.InitialStatus)
}

func TestClickPesaCreateOrderRequiresAPIKey(t *testing.T) {
	client := NewClickPesaClient(ClickPesaConfig{BaseURL: "https://clickpesa.example"})
	_, err := client.CreateOrder(context.Background(), &CreateOrderInput{Reference: "ref-1"})
	require.Error(t, err)
}

func TestClickPesaCreateOrderServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClickPesaClient(ClickPesaConfig{BaseURL: server.URL, APIKey: "test-key"})
	_, err := client.CreateOrder(context.Background(), &CreateOrderInput{Reference: "ref-1"})
	require.True(t, errors.Is(err, ErrUnavailable), "expected ErrUnavailable, got %v", err)
}

func TestClickPesaCreateOrderClientErrorIsNotUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClickPesaClient(ClickPesaConfig{BaseURL: server.URL, APIKey: "test-key"})
	_, err := client.CreateOrder(context.Background(), &CreateOrderInput{Reference: "ref-1"})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrUnavailable))
}

func TestClickPesaGetOrderStatusSingleObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/third-parties/payments/ref-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"SUCCESS"}`))
	}))
	defer server.Close()

	client := NewClickPesaClient(ClickPesaConfig{BaseURL: server.URL, APIKey: "test-key"})
	status, err := client.GetOrderStatus(context.Background(), "ref-1")
	require.NoError(t, err)
	require.Equal(t, entity.StatusCompleted, status)
}

func TestClickPesaGetOrderStatusList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"status":"FAILED"},{"status":"PENDING"}]`))
	}))
	defer server.Close()

	client := NewClickPesaClient(ClickPesaConfig{BaseURL: server.URL, APIKey: "test-key"})
	status, err := client.GetOrderStatus(context.Background(), "ref-1")
	require.NoError(t, err)
	require.Equal(t, entity.StatusFailed, status)
}

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	client := NewClickPesaClient(ClickPesaConfig{BaseURL: "https://clickpesa.example", APIKey: "test-key"})
	registry := NewRegistry(client)

	got, err := registry.Get("ClickPesa")
	require.NoError(t, err)
	require.Equal(t, "clickpesa", got.Name())

	_, err = registry.Get("unknown")
	require.True(t, errors.Is(err, ErrProviderNotSupported))
}
