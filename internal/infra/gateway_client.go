package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
)

// GatewayOrder is the handle the client needs to open the gateway checkout.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// GatewayClient creates payment orders on the external gateway. Amounts go
// over the wire in minor units.
type GatewayClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	currency   string
	httpClient *http.Client
}

func NewGatewayClient(baseURL, keyID, keySecret, currency string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL:    baseURL,
		keyID:      keyID,
		keySecret:  keySecret,
		currency:   currency,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *GatewayClient) CreateOrder(ctx context.Context, amount decimal.Decimal) (*GatewayOrder, error) {
	payload := map[string]any{
		"amount":   amount.Shift(2).Round(0).IntPart(),
		"currency": c.currency,
		"receipt":  "rcpt_" + uuid.NewString()[:8],
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrGateway, resp.StatusCode, bytes.TrimSpace(b))
	}
	var out GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode order: %w", domain.ErrGateway, err)
	}
	return &out, nil
}
