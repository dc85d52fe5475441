package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-momo/app/entity"
)

const clickPesaName = "clickpesa"

type ClickPesaConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

// ClickPesaClient drives USSD-push collection requests against the ClickPesa
// mobile-money aggregator.
type ClickPesaClient struct {
	cfg    ClickPesaConfig
	client *http.Client
}

func NewClickPesaClient(cfg ClickPesaConfig) *ClickPesaClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	return &ClickPesaClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *ClickPesaClient) Name() string {
	return clickPesaName
}

func (c *ClickPesaClient) CreateOrder(ctx context.Context, input *CreateOrderInput) (*CreateOrderOutput, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("clickpesa api key is not configured")
	}

	payload := map[string]interface{}{
		"amount":         input.AmountCents,
		"currency":       strings.ToUpper(input.Currency),
		"orderReference": input.Reference,
		"phoneNumber":    input.PhoneNumber,
	}

	body, err := c.postJSON(ctx, "/third-parties/payments/initiate-ussd-push-request", payload)
	if err != nil {
		return nil, err
	}

	var response struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		CheckoutURL string `json:"checkoutUrl"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}

	status, ok := ParseStatus(response.Status)
	if !ok || status.Terminal() {
		status = entity.StatusProcessing
	}

	result := &CreateOrderOutput{InitialStatus: status}
	if s := strings.TrimSpace(response.ID); s != "" {
		result.GatewayTransactionID = &s
	}
	if s := strings.TrimSpace(response.CheckoutURL); s != "" {
		result.CheckoutURL = &s
	}

	return result, nil
}

func (c *ClickPesaClient) GetOrderStatus(ctx context.Context, reference string) (entity.SessionStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/third-parties/payments/"+url.PathEscape(reference), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: status=%d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("clickpesa status query failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	// The status endpoint returns either a single object or a list of
	// payment attempts for the reference; the first entry is the newest.
	var single struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &single); err == nil && single.Status != "" {
		status, _ := ParseStatus(single.Status)
		return status, nil
	}

	var list []struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
		status, _ := ParseStatus(list[0].Status)
		return status, nil
	}

	return "", nil
}

func (c *ClickPesaClient) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: path=%s status=%d", ErrUnavailable, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("clickpesa request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(body))
	}

	return body, nil
}
