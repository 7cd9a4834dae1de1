package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/metrics"
)

// CategoryResolver looks up a product's catalog category so category-scoped
// listings can be dropped too.
type CategoryResolver interface {
	CategoryOf(ctx context.Context, productID string) (string, error)
}

// Invalidator removes entries that a mutation may have made stale: the
// entity key itself plus every list namespace whose queries could have
// included the entity. List keys are shaped by arbitrary queries, so
// namespaces are dropped wholesale.
type Invalidator struct {
	store      Store
	categories CategoryResolver
}

func NewInvalidator(store Store, categories CategoryResolver) *Invalidator {
	return &Invalidator{store: store, categories: categories}
}

// InvalidateOrder drops the order key, the customer's order lists and the
// order lists of every seller involved.
func (i *Invalidator) InvalidateOrder(ctx context.Context, orderID, customerID string, sellerIDs []string) error {
	var errs []error
	errs = append(errs, i.deleteKey(ctx, OrderKey(orderID)))
	if customerID != "" {
		errs = append(errs, i.deletePrefix(ctx, CustomerOrdersPrefix(customerID)))
	}
	for _, sid := range sellerIDs {
		errs = append(errs, i.deletePrefix(ctx, SellerOrdersPrefix(sid)))
	}
	return errors.Join(errs...)
}

// InvalidateProduct drops a product's entry, the global listing namespace,
// its seller's listing and, when the catalog answers, its category listing.
func (i *Invalidator) InvalidateProduct(ctx context.Context, productID, sellerID string) error {
	var errs []error
	errs = append(errs, i.deleteKey(ctx, ProductKey(productID)))
	errs = append(errs, i.deletePrefix(ctx, ProductListPrefix))
	if sellerID != "" {
		errs = append(errs, i.deletePrefix(ctx, SellerListingPrefix(sellerID)))
	}
	if i.categories != nil {
		category, err := i.categories.CategoryOf(ctx, productID)
		switch {
		case err != nil:
			slog.Warn("cache: category lookup failed, category listing left to TTL", "product_id", productID, "err", err)
		case category != "":
			errs = append(errs, i.deletePrefix(ctx, CategoryPrefix(category)))
		}
	}
	return errors.Join(errs...)
}

// Apply executes an invalidation request: the order's own entries plus
// every product it references.
func (i *Invalidator) Apply(ctx context.Context, orderID string, req domain.CacheInvalidation) error {
	errs := []error{i.InvalidateOrder(ctx, orderID, req.CustomerID, req.SellerIDs)}
	for _, p := range req.Products {
		errs = append(errs, i.InvalidateProduct(ctx, p.ProductID, p.SellerID))
	}
	return errors.Join(errs...)
}

func (i *Invalidator) deleteKey(ctx context.Context, key string) error {
	if err := i.store.Delete(ctx, key); err != nil {
		metrics.CacheInvalidations.WithLabelValues("key", "error").Inc()
		return fmt.Errorf("cache: delete %s: %w", key, err)
	}
	metrics.CacheInvalidations.WithLabelValues("key", "ok").Inc()
	return nil
}

func (i *Invalidator) deletePrefix(ctx context.Context, prefix string) error {
	n, err := i.store.DeleteByPrefix(ctx, prefix)
	if err != nil {
		metrics.CacheInvalidations.WithLabelValues("namespace", "error").Inc()
		return fmt.Errorf("cache: delete namespace %s: %w", prefix, err)
	}
	metrics.CacheInvalidations.WithLabelValues("namespace", "ok").Inc()
	slog.Debug("cache: namespace dropped", "prefix", prefix, "keys", n)
	return nil
}
