package repository

import (
	"context"
	"time"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
)

type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps a caller-supplied page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// OrderRepository is the durable order store. Finders return (nil, nil)
// when nothing matches.
type OrderRepository interface {
	// Create writes the order, its items and its outbox tasks in one
	// transaction. A second order for the same gateway payment id fails with
	// domain.ErrDuplicatePayment.
	Create(ctx context.Context, order *domain.Order, tasks []domain.OutboxTask) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
	FindByCustomer(ctx context.Context, customerID string, page Page) ([]domain.Order, error)
	FindBySeller(ctx context.Context, sellerID string, page Page) ([]domain.Order, error)
	// SaveTransition persists item changes and the recomputed aggregate
	// fields. Every item change is guarded by its previous status and the
	// aggregate by expectedVersion; a stale read fails with
	// domain.ErrConflict and nothing is written.
	SaveTransition(ctx context.Context, order *domain.Order, changes []domain.ItemChange, expectedVersion uint64) error
}

type NotificationRepository interface {
	// Create reports false when the recipient already has this notification.
	Create(ctx context.Context, n *domain.Notification) (bool, error)
	FindByRecipient(ctx context.Context, recipientID string, unreadOnly bool, page Page) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) error
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, tasks []domain.OutboxTask) error
	FetchDue(ctx context.Context, now time.Time, limit int) ([]domain.OutboxTask, error)
	// Claim pushes the task's next attempt to until, only if nobody else has
	// claimed it since it was read.
	Claim(ctx context.Context, task *domain.OutboxTask, until time.Time) (bool, error)
	MarkDone(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, task *domain.OutboxTask) error
}
