package services

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
)

// Money columns are decimal(12,2).
var maxAmount = decimal.RequireFromString("9999999999.99")

const maxQuantity = 10000

// centPrecise reports whether v survives storage at two decimal places
// unchanged.
func centPrecise(v decimal.Decimal) bool {
	return v.Equal(v.Round(2))
}

type ItemInput struct {
	ProductID string
	SellerID  string
	Name      string
	Image     string
	Price     decimal.Decimal
	Quantity  int
}

// CheckoutInput is the normalized checkout payload shared by the COD and
// online paths.
type CheckoutInput struct {
	CustomerID      string
	Items           []ItemInput
	ShippingAddress domain.ShippingAddress
	ItemsPrice      decimal.Decimal
	TaxPrice        decimal.Decimal
	ShippingPrice   decimal.Decimal
	// TotalPrice is optional; when present it must match the components.
	TotalPrice *decimal.Decimal
}

// Validate reports every problem at once so clients can fix the payload in
// one round trip.
func (in CheckoutInput) Validate() error {
	var problems []string
	if strings.TrimSpace(in.CustomerID) == "" {
		problems = append(problems, "customer is required")
	}
	if len(in.Items) == 0 {
		problems = append(problems, "orderItems must not be empty")
	}

	sum := decimal.Zero
	for i, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			problems = append(problems, fmt.Sprintf("orderItems[%d]: product is required", i))
		}
		if strings.TrimSpace(it.SellerID) == "" {
			problems = append(problems, fmt.Sprintf("orderItems[%d]: seller is required", i))
		}
		if it.Quantity < 1 {
			problems = append(problems, fmt.Sprintf("orderItems[%d]: qty must be at least 1", i))
		}
		if it.Quantity > maxQuantity {
			problems = append(problems, fmt.Sprintf("orderItems[%d]: qty must not exceed %d", i, maxQuantity))
		}
		if it.Price.IsNegative() {
			problems = append(problems, fmt.Sprintf("orderItems[%d]: price must not be negative", i))
		}
		if !centPrecise(it.Price) {
			problems = append(problems, fmt.Sprintf("orderItems[%d]: price must have at most 2 decimal places", i))
		}
		line := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		if line.GreaterThan(maxAmount) {
			problems = append(problems, fmt.Sprintf("orderItems[%d]: line total exceeds %s", i, maxAmount))
		}
		sum = sum.Add(line)
	}

	a := in.ShippingAddress
	for field, v := range map[string]string{
		"fullName":   a.FullName,
		"address":    a.Address,
		"city":       a.City,
		"postalCode": a.PostalCode,
		"country":    a.Country,
	} {
		if strings.TrimSpace(v) == "" {
			problems = append(problems, "shippingAddress."+field+" is required")
		}
	}

	for field, v := range map[string]decimal.Decimal{
		"itemsPrice":    in.ItemsPrice,
		"taxPrice":      in.TaxPrice,
		"shippingPrice": in.ShippingPrice,
	} {
		if v.IsNegative() {
			problems = append(problems, field+" must not be negative")
		}
		if !centPrecise(v) {
			problems = append(problems, field+" must have at most 2 decimal places")
		}
	}
	if in.total().GreaterThan(maxAmount) {
		problems = append(problems, fmt.Sprintf("totalPrice exceeds %s", maxAmount))
	}
	if len(in.Items) > 0 && !in.ItemsPrice.Equal(sum) {
		problems = append(problems, fmt.Sprintf("itemsPrice %s does not match the items (%s)", in.ItemsPrice, sum))
	}
	if in.TotalPrice != nil && !in.TotalPrice.Equal(in.total()) {
		problems = append(problems, fmt.Sprintf("totalPrice %s does not match itemsPrice + taxPrice + shippingPrice (%s)", in.TotalPrice, in.total()))
	}

	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
}

func (in CheckoutInput) total() decimal.Decimal {
	return in.ItemsPrice.Add(in.TaxPrice).Add(in.ShippingPrice)
}

// BuildOrder turns a validated checkout into a new aggregate. payment is nil
// for cash on delivery; a non-nil payment means the confirmation verified.
func BuildOrder(in CheckoutInput, payment *domain.PaymentResult, now time.Time) (*domain.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	o := &domain.Order{
		ID:              uuid.NewString(),
		CustomerID:      in.CustomerID,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   domain.PaymentCOD,
		ItemsPrice:      in.ItemsPrice,
		TaxPrice:        in.TaxPrice,
		ShippingPrice:   in.ShippingPrice,
		TotalPrice:      in.total(),
		Status:          domain.StatusProcessing,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if payment != nil {
		o.PaymentMethod = domain.PaymentOnline
		o.PaymentResult = *payment
		o.IsPaid = true
		o.PaidAt = &now
	}

	o.Items = make([]domain.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		o.Items = append(o.Items, domain.OrderItem{
			ID:         uuid.NewString(),
			OrderID:    o.ID,
			ProductID:  it.ProductID,
			SellerID:   it.SellerID,
			Name:       it.Name,
			Image:      it.Image,
			Price:      it.Price,
			Quantity:   it.Quantity,
			ItemStatus: domain.StatusProcessing,
		})
	}
	return o, nil
}
