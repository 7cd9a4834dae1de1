package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/infra"
	"github.com/manasdevX/ShopEasy-sub001/internal/repository"
)

const confirmationTemplate = "order_confirmation"

// ConfirmationService sends the purchasing customer an itemized summary.
type ConfirmationService struct {
	orders    repository.OrderRepository
	directory infra.DirectoryClientInterface
	messaging infra.MessagingClientInterface
}

func NewConfirmationService(o repository.OrderRepository, d infra.DirectoryClientInterface, m infra.MessagingClientInterface) *ConfirmationService {
	return &ConfirmationService{orders: o, directory: d, messaging: m}
}

func (s *ConfirmationService) HandleTask(ctx context.Context, task domain.OutboxTask) error {
	o, err := s.orders.FindByID(ctx, task.OrderID)
	if err != nil {
		return err
	}
	if o == nil {
		return fmt.Errorf("order %s not found", task.OrderID)
	}
	return s.Send(ctx, o)
}

func (s *ConfirmationService) Send(ctx context.Context, o *domain.Order) error {
	user, err := s.directory.GetUser(ctx, o.CustomerID)
	if err != nil {
		return fmt.Errorf("lookup customer %s: %w", o.CustomerID, err)
	}
	if user == nil {
		return fmt.Errorf("customer %s not found in directory", o.CustomerID)
	}
	to := user.Email
	if to == "" {
		to = user.Phone
	}
	if to == "" {
		return fmt.Errorf("customer %s has no contact address", o.CustomerID)
	}

	msg := infra.Message{
		To:       to,
		Template: confirmationTemplate,
		Params: map[string]string{
			"name":          user.Name,
			"orderId":       o.ShortID(),
			"items":         ItemizedSummary(o),
			"totalPrice":    o.TotalPrice.StringFixed(2),
			"paymentMethod": string(o.PaymentMethod),
		},
	}
	if err := s.messaging.Send(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	slog.Info("order confirmation sent", "order_id", o.ID, "customer_id", o.CustomerID)
	return nil
}

// ItemizedSummary renders one "<qty> x <name> @ <price>" line per item
// followed by the price breakdown.
func ItemizedSummary(o *domain.Order) string {
	var b strings.Builder
	for _, it := range o.Items {
		fmt.Fprintf(&b, "%d x %s @ %s\n", it.Quantity, it.Name, it.Price.StringFixed(2))
	}
	fmt.Fprintf(&b, "Items: %s\n", o.ItemsPrice.StringFixed(2))
	fmt.Fprintf(&b, "Tax: %s\n", o.TaxPrice.StringFixed(2))
	fmt.Fprintf(&b, "Shipping: %s\n", o.ShippingPrice.StringFixed(2))
	fmt.Fprintf(&b, "Total: %s", o.TotalPrice.StringFixed(2))
	return b.String()
}
