package mysql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/repository"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, order *domain.Order, tasks []domain.OutboxTask) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		for i := range tasks {
			tasks[i].OrderID = order.ID
		}
		return tx.Create(&tasks).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicatePayment
	}
	if err != nil {
		slog.Error("order create failed", "order_id", order.ID, "err", err)
		return fmt.Errorf("%w: create order: %w", domain.ErrPersistence, err)
	}
	slog.Info("order saved", "order_id", order.ID, "items", len(order.Items), "tasks", len(tasks))
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *orderRepo) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	return r.findOne(ctx, "payment_payment_id = ?", paymentID)
}

func (r *orderRepo) findOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Preload("Items", orderItems).Where(query, arg).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		slog.Error("order lookup failed", "query", query, "err", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return &o, nil
}

func (r *orderRepo) FindByCustomer(ctx context.Context, customerID string, page repository.Page) ([]domain.Order, error) {
	page = page.Normalize()
	var out []domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&out).Error
	if err != nil {
		slog.Error("FindByCustomer failed", "customer_id", customerID, "err", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return out, nil
}

// FindBySeller returns orders containing at least one of the seller's items,
// with only those items loaded.
func (r *orderRepo) FindBySeller(ctx context.Context, sellerID string, page repository.Page) ([]domain.Order, error) {
	page = page.Normalize()
	owned := r.db.Model(&domain.OrderItem{}).Select("order_id").Where("seller_id = ?", sellerID)
	var out []domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return orderItems(db).Where("seller_id = ?", sellerID)
		}).
		Where("id IN (?)", owned).
		Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&out).Error
	if err != nil {
		slog.Error("FindBySeller failed", "seller_id", sellerID, "err", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return out, nil
}

// SaveTransition never rewrites the whole aggregate: each item row is
// updated only if it still holds the status the caller read, and the order
// row only if its version is unchanged.
func (r *orderRepo) SaveTransition(ctx context.Context, order *domain.Order, changes []domain.ItemChange, expectedVersion uint64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ch := range changes {
			res := tx.Model(&domain.OrderItem{}).
				Where("id = ? AND order_id = ? AND item_status = ?", ch.ItemID, order.ID, ch.From).
				Update("item_status", ch.To)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("%w: item %s is no longer %s", domain.ErrConflict, ch.ItemID, ch.From)
			}
		}

		res := tx.Model(&domain.Order{}).
			Where("id = ? AND version = ?", order.ID, expectedVersion).
			Updates(map[string]any{
				"status":       order.Status,
				"is_delivered": order.IsDelivered,
				"delivered_at": order.DeliveredAt,
				"is_refunded":  order.IsRefunded,
				"refunded_at":  order.RefundedAt,
				"version":      gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: order %s changed since version %d", domain.ErrConflict, order.ID, expectedVersion)
		}
		return nil
	})
	if errors.Is(err, domain.ErrConflict) {
		return err
	}
	if err != nil {
		slog.Error("SaveTransition failed", "order_id", order.ID, "err", err)
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	order.Version = expectedVersion + 1
	return nil
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.id")
}
