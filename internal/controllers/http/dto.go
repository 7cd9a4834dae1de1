package http

import (
	"github.com/shopspring/decimal"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/payment"
	"github.com/manasdevX/ShopEasy-sub001/internal/services"
)

type OrderItemRequest struct {
	Name    string          `json:"name"`
	Qty     int             `json:"qty"`
	Image   string          `json:"image"`
	Price   decimal.Decimal `json:"price"`
	Product string          `json:"product"`
	Seller  string          `json:"seller"`
}

type CheckoutRequest struct {
	OrderItems      []OrderItemRequest     `json:"orderItems"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	ItemsPrice      decimal.Decimal        `json:"itemsPrice"`
	TaxPrice        decimal.Decimal        `json:"taxPrice"`
	ShippingPrice   decimal.Decimal        `json:"shippingPrice"`
	TotalPrice      *decimal.Decimal       `json:"totalPrice"`
}

func (r CheckoutRequest) toInput(customerID string) services.CheckoutInput {
	in := services.CheckoutInput{
		CustomerID:      customerID,
		ShippingAddress: r.ShippingAddress,
		ItemsPrice:      r.ItemsPrice,
		TaxPrice:        r.TaxPrice,
		ShippingPrice:   r.ShippingPrice,
		TotalPrice:      r.TotalPrice,
	}
	for _, it := range r.OrderItems {
		in.Items = append(in.Items, services.ItemInput{
			ProductID: it.Product,
			SellerID:  it.Seller,
			Name:      it.Name,
			Image:     it.Image,
			Price:     it.Price,
			Quantity:  it.Qty,
		})
	}
	return in
}

type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
	CheckoutRequest
}

func (r VerifyPaymentRequest) confirmation() payment.Confirmation {
	return payment.Confirmation{
		GatewayOrderID:   r.GatewayOrderID,
		GatewayPaymentID: r.GatewayPaymentID,
		Signature:        r.Signature,
	}
}

type CreatePaymentOrderRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type UpdateStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	ProductID string `json:"productId"`
}

type OrderResponse struct {
	Order *domain.Order `json:"order"`
}
