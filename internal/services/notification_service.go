package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/infra/rabbitmq"
	"github.com/manasdevX/ShopEasy-sub001/internal/metrics"
	"github.com/manasdevX/ShopEasy-sub001/internal/repository"
)

// EventNewNotification is the realtime event name sellers' clients listen to.
const EventNewNotification = "newNotification"

type NotificationService struct {
	orders        repository.OrderRepository
	notifications repository.NotificationRepository
	broadcaster   rabbitmq.BroadcasterInterface
	now           func() time.Time
}

func NewNotificationService(o repository.OrderRepository, n repository.NotificationRepository, b rabbitmq.BroadcasterInterface) *NotificationService {
	return &NotificationService{
		orders:        o,
		notifications: n,
		broadcaster:   b,
		now:           func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// FanOut creates one order notification per distinct seller of the order.
// A failing seller does not stop the others; the joined error makes the
// task retry, and sellers that already got theirs are skipped by the store.
func (s *NotificationService) FanOut(ctx context.Context, o *domain.Order) error {
	var errs []error
	for _, sellerID := range o.SellerIDs() {
		if err := s.notifySeller(ctx, o, sellerID); err != nil {
			slog.Error("seller notification failed", "order_id", o.ID, "seller_id", sellerID, "err", err)
			errs = append(errs, fmt.Errorf("seller %s: %w", sellerID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *NotificationService) notifySeller(ctx context.Context, o *domain.Order, sellerID string) error {
	orderID := o.ID
	n := &domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: sellerID,
		Type:        domain.NotificationOrder,
		Title:       "New order received",
		Message:     fmt.Sprintf("Order %s has been placed with items worth %s.", o.ShortID(), o.ItemsPrice.StringFixed(2)),
		RelatedID:   &orderID,
		CreatedAt:   s.now(),
	}
	created, err := s.notifications.Create(ctx, n)
	if err != nil {
		return err
	}
	if !created {
		slog.Debug("seller already notified", "order_id", o.ID, "seller_id", sellerID)
		return nil
	}
	metrics.NotificationsCreated.Inc()

	// Sellers that are offline pick the record up on their next fetch.
	if err := s.broadcaster.EmitToSeller(ctx, sellerID, EventNewNotification, n); err != nil {
		slog.Warn("realtime broadcast failed", "order_id", o.ID, "seller_id", sellerID, "err", err)
	}
	return nil
}

// HandleTask executes a notify.sellers task.
func (s *NotificationService) HandleTask(ctx context.Context, task domain.OutboxTask) error {
	o, err := s.orders.FindByID(ctx, task.OrderID)
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("order %s not found", task.OrderID)
	}
	return s.FanOut(ctx, o)
}

func (s *NotificationService) List(ctx context.Context, caller domain.Caller, unreadOnly bool, page repository.Page) ([]domain.Notification, error) {
	out, err := s.notifications.FindByRecipient(ctx, caller.ID, unreadOnly, page)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Notification{}
	}
	return out, nil
}

// MarkRead only touches notifications addressed to the caller; anything
// else is reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, caller domain.Caller, id string) error {
	return s.notifications.MarkRead(ctx, id, caller.ID)
}
