package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is a templated send; the provider renders Template with Params.
type Message struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Params   map[string]string `json:"params"`
}

type MessagingClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewMessagingClient(baseURL string, timeout time.Duration) *MessagingClient {
	return &MessagingClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *MessagingClient) Send(ctx context.Context, msg Message) error {
	if c.baseURL == "" {
		return fmt.Errorf("messaging provider not configured")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("messaging provider returned status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	return nil
}
