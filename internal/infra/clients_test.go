package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
)

func TestProductClient_GetProductByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/p1":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"id": "p1", "name": "Mug", "seller": "s1", "category": "kitchen",
			})
		case "/products/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewProductClient(srv.URL, time.Second)
	ctx := context.Background()

	p, err := c.GetProductByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, &ProductInfo{ID: "p1", Name: "Mug", SellerID: "s1", Category: "kitchen"}, p)

	p, err = c.GetProductByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = c.GetProductByID(ctx, "broken")
	assert.Error(t, err)

	category, err := c.CategoryOf(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "kitchen", category)

	category, err = c.CategoryOf(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, category)
}

func TestProductClient_Unconfigured(t *testing.T) {
	p, err := NewProductClient("", time.Second).GetProductByID(context.Background(), "p1")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestDirectoryClient_GetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/c1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(UserContact{ID: "c1", Name: "Asha", Email: "asha@example.com"})
	}))
	defer srv.Close()

	c := NewDirectoryClient(srv.URL, time.Second)

	u, err := c.GetUser(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", u.Email)

	u, err = c.GetUser(context.Background(), "c2")
	require.NoError(t, err)
	assert.Nil(t, u)

	_, err = NewDirectoryClient("", time.Second).GetUser(context.Background(), "c1")
	assert.Error(t, err)
}

func TestMessagingClient_Send(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.To == "reject" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("bad recipient"))
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewMessagingClient(srv.URL, time.Second)
	msg := Message{To: "asha@example.com", Template: "order_confirmation", Params: map[string]string{"orderId": "#ABC"}}

	require.NoError(t, c.Send(context.Background(), msg))
	assert.Equal(t, msg, got)

	err := c.Send(context.Background(), Message{To: "reject"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad recipient")
}

func TestGatewayClient_CreateOrder(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_ = json.NewEncoder(w).Encode(GatewayOrder{
			ID: "order_G1", Amount: 123450, Currency: "INR", Receipt: payload["receipt"].(string), Status: "created",
		})
	}))
	defer srv.Close()

	c := NewGatewayClient(srv.URL, "key", "secret", "INR", time.Second)

	out, err := c.CreateOrder(context.Background(), decimal.RequireFromString("1234.50"))
	require.NoError(t, err)
	assert.Equal(t, "order_G1", out.ID)
	assert.EqualValues(t, 123450, payload["amount"])
	assert.Equal(t, "INR", payload["currency"])
	assert.Regexp(t, `^rcpt_[0-9a-f-]{8}$`, payload["receipt"])
}

func TestGatewayClient_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	_, err := NewGatewayClient(srv.URL, "k", "s", "INR", time.Second).CreateOrder(context.Background(), decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrGateway)

	srv.Close()
	_, err = NewGatewayClient(srv.URL, "k", "s", "INR", time.Second).CreateOrder(context.Background(), decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrGateway)
}
