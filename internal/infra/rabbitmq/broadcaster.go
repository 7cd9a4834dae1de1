package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
)

// SellerRoom is the routing key of a seller's realtime room.
func SellerRoom(sellerID string) string {
	return fmt.Sprintf("seller.%s.notification", sellerID)
}

// Broadcaster pushes events into per-seller rooms.
type Broadcaster struct {
	publisher PublisherInterface
}

func NewBroadcaster(p PublisherInterface) *Broadcaster {
	return &Broadcaster{publisher: p}
}

func (b *Broadcaster) EmitToSeller(ctx context.Context, sellerID, event string, payload any) error {
	return b.publisher.Publish(ctx, Message{Event: event, Room: SellerRoom(sellerID), Data: payload})
}

// NopBroadcaster is used when no broker is configured; sellers then only see
// notifications on their next fetch.
type NopBroadcaster struct{}

func (NopBroadcaster) EmitToSeller(_ context.Context, sellerID, event string, _ any) error {
	slog.Debug("realtime broadcast disabled", "seller_id", sellerID, "event", event)
	return nil
}
