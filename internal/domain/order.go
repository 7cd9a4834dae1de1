package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusProcessing      OrderStatus = "Processing"
	StatusShipped         OrderStatus = "Shipped"
	StatusDelivered       OrderStatus = "Delivered"
	StatusCancelled       OrderStatus = "Cancelled"
	StatusReturnRequested OrderStatus = "Return Requested"
	StatusReturnInitiated OrderStatus = "Return Initiated"
	StatusReturned        OrderStatus = "Returned"
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "Online"
)

type ShippingAddress struct {
	FullName   string `json:"fullName" gorm:"size:128"`
	Phone      string `json:"phone" gorm:"size:32"`
	Address    string `json:"address" gorm:"size:255"`
	City       string `json:"city" gorm:"size:64"`
	State      string `json:"state" gorm:"size:64"`
	PostalCode string `json:"postalCode" gorm:"size:16"`
	Country    string `json:"country" gorm:"size:64"`
}

// PaymentResult is what the gateway reported for an online payment.
// PaymentID doubles as the idempotency key of the online create path.
type PaymentResult struct {
	GatewayOrderID string     `json:"gatewayOrderId,omitempty" gorm:"size:64"`
	PaymentID      *string    `json:"paymentId,omitempty" gorm:"size:64;uniqueIndex"`
	Status         string     `json:"status,omitempty" gorm:"size:32"`
	UpdateTime     *time.Time `json:"updateTime,omitempty"`
}

type OrderItem struct {
	ID         string          `json:"id" gorm:"primaryKey;type:char(36)"`
	OrderID    string          `json:"-" gorm:"type:char(36);not null;index"`
	ProductID  string          `json:"productId" gorm:"size:64;not null;index"`
	SellerID   string          `json:"sellerId" gorm:"size:64;not null;index"`
	Name       string          `json:"name" gorm:"size:255"`
	Image      string          `json:"image,omitempty" gorm:"size:512"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Quantity   int             `json:"quantity" gorm:"not null"`
	ItemStatus OrderStatus     `json:"itemStatus" gorm:"size:32;not null;default:'Processing'"`
}

type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:char(36)"`
	CustomerID      string          `json:"customerId" gorm:"size:64;not null;index"`
	Items           []OrderItem     `json:"orderItems" gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT"`
	ShippingAddress ShippingAddress `json:"shippingAddress" gorm:"embedded;embeddedPrefix:ship_"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" gorm:"size:16;not null"`
	PaymentResult   PaymentResult   `json:"paymentResult" gorm:"embedded;embeddedPrefix:payment_"`
	ItemsPrice      decimal.Decimal `json:"itemsPrice" gorm:"type:decimal(12,2);not null"`
	TaxPrice        decimal.Decimal `json:"taxPrice" gorm:"type:decimal(12,2);not null"`
	ShippingPrice   decimal.Decimal `json:"shippingPrice" gorm:"type:decimal(12,2);not null"`
	TotalPrice      decimal.Decimal `json:"totalPrice" gorm:"type:decimal(12,2);not null"`
	IsPaid          bool            `json:"isPaid" gorm:"not null;default:false"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	IsDelivered     bool            `json:"isDelivered" gorm:"not null;default:false"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	IsRefunded      bool            `json:"isRefunded" gorm:"not null;default:false"`
	RefundedAt      *time.Time      `json:"refundedAt,omitempty"`
	Status          OrderStatus     `json:"status" gorm:"size:32;not null;default:'Processing';index"`
	Version         uint64          `json:"version" gorm:"not null;default:1"`
	CreatedAt       time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// SellerIDs returns the distinct sellers referenced by the order's items in
// first-seen order.
func (o *Order) SellerIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	out := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.SellerID]; ok {
			continue
		}
		seen[it.SellerID] = struct{}{}
		out = append(out, it.SellerID)
	}
	return out
}

// HasSeller reports whether any item belongs to sellerID.
func (o *Order) HasSeller(sellerID string) bool {
	for _, it := range o.Items {
		if it.SellerID == sellerID {
			return true
		}
	}
	return false
}

// ForSeller returns a copy of the order that only carries sellerID's items.
func (o *Order) ForSeller(sellerID string) Order {
	cp := *o
	cp.Items = make([]OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		if it.SellerID == sellerID {
			cp.Items = append(cp.Items, it)
		}
	}
	return cp
}

// ShortID is the truncated identifier shown to people.
func (o *Order) ShortID() string {
	id := o.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "#" + strings.ToUpper(id)
}
