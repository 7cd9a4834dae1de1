package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type ProductInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SellerID string `json:"seller"`
	Category string `json:"category"`
}

// ProductClient talks to the catalog service. Only lookups are needed here.
type ProductClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewProductClient(baseURL string, timeout time.Duration) *ProductClient {
	return &ProductClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *ProductClient) GetProductByID(ctx context.Context, id string) (*ProductInfo, error) {
	if c.baseURL == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/products/%s", c.baseURL, url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("product service returned status %d", resp.StatusCode)
	}
	var p ProductInfo
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CategoryOf returns "" for products the catalog does not know.
func (c *ProductClient) CategoryOf(ctx context.Context, productID string) (string, error) {
	p, err := c.GetProductByID(ctx, productID)
	if err != nil || p == nil {
		return "", err
	}
	return p.Category, nil
}
