package rabbitmq

import "context"

type PublisherInterface interface {
	Publish(ctx context.Context, msg Message) error
}

type BroadcasterInterface interface {
	EmitToSeller(ctx context.Context, sellerID, event string, payload any) error
}

var (
	_ PublisherInterface   = (*Publisher)(nil)
	_ BroadcasterInterface = (*Broadcaster)(nil)
	_ BroadcasterInterface = NopBroadcaster{}
)
