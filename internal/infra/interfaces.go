package infra

import (
	"context"

	"github.com/shopspring/decimal"
)

type ProductClientInterface interface {
	GetProductByID(ctx context.Context, id string) (*ProductInfo, error)
	CategoryOf(ctx context.Context, productID string) (string, error)
}

type DirectoryClientInterface interface {
	GetUser(ctx context.Context, id string) (*UserContact, error)
}

type MessagingClientInterface interface {
	Send(ctx context.Context, msg Message) error
}

type GatewayClientInterface interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal) (*GatewayOrder, error)
}

var (
	_ ProductClientInterface   = (*ProductClient)(nil)
	_ DirectoryClientInterface = (*DirectoryClient)(nil)
	_ MessagingClientInterface = (*MessagingClient)(nil)
	_ GatewayClientInterface   = (*GatewayClient)(nil)
)
