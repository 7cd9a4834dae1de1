// Package cache holds the side cache used by the read paths and the
// invalidation policy that keeps it coherent with the order store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// DefaultTTL bounds every entry regardless of invalidation activity.
const DefaultTTL = time.Hour

var ErrMiss = errors.New("cache: miss")

// Store is the key-value collaborator. DeleteByPrefix removes a whole
// namespace and returns how many keys went away.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// Pinger is implemented by stores backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	orderPrefix          = "order:"
	orderVersionPrefix   = "order-version:"
	customerOrdersPrefix = "orders:customer:"
	sellerOrdersPrefix   = "orders:seller:"
	productPrefix        = "product:"
	categoryPrefix       = "products:category:"
	sellerListingPrefix  = "products:seller:"

	ProductListPrefix = "products:list:"
)

func OrderKey(orderID string) string { return orderPrefix + orderID }

// OrderVersionKey holds the newest version a mutation committed for the
// order. Cached copies older than it are stale.
func OrderVersionKey(orderID string) string { return orderVersionPrefix + orderID }

func CustomerOrdersPrefix(customerID string) string {
	return customerOrdersPrefix + customerID + ":"
}

func CustomerOrdersKey(customerID, query string) string {
	return CustomerOrdersPrefix(customerID) + query
}

func SellerOrdersPrefix(sellerID string) string {
	return sellerOrdersPrefix + sellerID + ":"
}

func SellerOrdersKey(sellerID, query string) string {
	return SellerOrdersPrefix(sellerID) + query
}

func ProductKey(productID string) string { return productPrefix + productID }

func CategoryPrefix(category string) string { return categoryPrefix + category + ":" }

func SellerListingPrefix(sellerID string) string { return sellerListingPrefix + sellerID + ":" }

// GetJSON decodes a cached payload into v. A payload that no longer decodes
// is treated as a miss.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return ErrMiss
	}
	return nil
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, data, ttl)
}
