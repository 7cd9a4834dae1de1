package services

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/mocks"
	"github.com/manasdevX/ShopEasy-sub001/internal/payment"
	"github.com/manasdevX/ShopEasy-sub001/internal/repository"
)

const (
	TestSecret     = "test_gateway_secret"
	TestCustomerID = "cust-1"
	TestOrderID    = "5f2b9c1e-0000-4000-8000-000000000001"
)

var testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func testAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		FullName:   "Asha Rao",
		Phone:      "+91 90000 00000",
		Address:    "12 MG Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
		Country:    "IN",
	}
}

// TwoSellerCheckout is S1 500x2 plus S2 300x1.
func TwoSellerCheckout() CheckoutInput {
	return CheckoutInput{
		CustomerID: TestCustomerID,
		Items: []ItemInput{
			{ProductID: "p-1", SellerID: "S1", Name: "Kettle", Price: dec("500"), Quantity: 2},
			{ProductID: "p-2", SellerID: "S2", Name: "Mug", Price: dec("300"), Quantity: 1},
		},
		ShippingAddress: testAddress(),
		ItemsPrice:      dec("1300"),
		TaxPrice:        dec("65"),
		ShippingPrice:   dec("40"),
	}
}

func CreateMockOrder(id string, status domain.OrderStatus, items ...domain.OrderItem) *domain.Order {
	for i := range items {
		items[i].OrderID = id
	}
	return &domain.Order{
		ID:              id,
		CustomerID:      TestCustomerID,
		Items:           items,
		ShippingAddress: testAddress(),
		PaymentMethod:   domain.PaymentCOD,
		ItemsPrice:      dec("800"),
		TaxPrice:        decimal.Zero,
		ShippingPrice:   decimal.Zero,
		TotalPrice:      dec("800"),
		Status:          status,
		Version:         1,
		CreatedAt:       testNow,
	}
}

func item(id, productID, sellerID string, st domain.OrderStatus) domain.OrderItem {
	return domain.OrderItem{ID: id, ProductID: productID, SellerID: sellerID, Name: productID, Price: dec("400"), Quantity: 1, ItemStatus: st}
}

func newTestService(repo repository.OrderRepository, outbox *mocks.MockOutboxRepository, gw *mocks.MockGatewayClient, d *mocks.MockDispatcher) *OrderService {
	s := NewOrderService(repo, outbox, payment.NewVerifier(TestSecret), gw, d)
	s.now = func() time.Time { return testNow }
	return s
}

// quietSideEffects accepts any post-mutation bookkeeping.
func quietSideEffects() (*mocks.MockOutboxRepository, *mocks.MockDispatcher) {
	outbox := new(mocks.MockOutboxRepository)
	outbox.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Maybe()
	d := new(mocks.MockDispatcher)
	d.On("Dispatch", mock.Anything).Return().Maybe()
	return outbox, d
}

// memOrderRepo is an in-memory order store with the same compare-and-set
// semantics as the gorm repository.
type memOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	byPayment map[string]string
	tasks     []domain.OutboxTask
	nextTask  uint64
}

func newMemOrderRepo(t *testing.T, seed ...*domain.Order) *memOrderRepo {
	t.Helper()
	r := &memOrderRepo{orders: map[string]domain.Order{}, byPayment: map[string]string{}}
	for _, o := range seed {
		r.orders[o.ID] = clone(o)
	}
	return r
}

func clone(o *domain.Order) domain.Order {
	cp := *o
	cp.Items = slices.Clone(o.Items)
	return cp
}

func (r *memOrderRepo) Create(_ context.Context, order *domain.Order, tasks []domain.OutboxTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pid := order.PaymentResult.PaymentID; pid != nil {
		if _, ok := r.byPayment[*pid]; ok {
			return domain.ErrDuplicatePayment
		}
		r.byPayment[*pid] = order.ID
	}
	r.orders[order.ID] = clone(order)
	for i := range tasks {
		r.nextTask++
		tasks[i].ID = r.nextTask
		tasks[i].OrderID = order.ID
		r.tasks = append(r.tasks, tasks[i])
	}
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	cp := clone(&o)
	return &cp, nil
}

func (r *memOrderRepo) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	r.mu.Lock()
	id, ok := r.byPayment[paymentID]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *memOrderRepo) FindByCustomer(_ context.Context, customerID string, _ repository.Page) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, clone(&o))
		}
	}
	return out, nil
}

func (r *memOrderRepo) FindBySeller(_ context.Context, sellerID string, _ repository.Page) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.HasSeller(sellerID) {
			out = append(out, o.ForSeller(sellerID))
		}
	}
	return out, nil
}

func (r *memOrderRepo) SaveTransition(_ context.Context, order *domain.Order, changes []domain.ItemChange, expectedVersion uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok || stored.Version != expectedVersion {
		return domain.ErrConflict
	}
	stored = clone(&stored)
	for _, ch := range changes {
		idx := slices.IndexFunc(stored.Items, func(it domain.OrderItem) bool { return it.ID == ch.ItemID })
		if idx < 0 || stored.Items[idx].ItemStatus != ch.From {
			return domain.ErrConflict
		}
		stored.Items[idx].ItemStatus = ch.To
	}
	stored.Status = order.Status
	stored.IsDelivered, stored.DeliveredAt = order.IsDelivered, order.DeliveredAt
	stored.IsRefunded, stored.RefundedAt = order.IsRefunded, order.RefundedAt
	stored.Version = expectedVersion + 1
	r.orders[order.ID] = stored
	order.Version = stored.Version
	return nil
}

func (r *memOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func (r *memOrderRepo) itemStatus(orderID, itemID string) domain.OrderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.orders[orderID].Items {
		if it.ID == itemID {
			return it.ItemStatus
		}
	}
	return ""
}

type notificationKey struct {
	recipient string
	typ       domain.NotificationType
	related   string
}

// memNotificationRepo enforces the (recipient, type, related) uniqueness.
type memNotificationRepo struct {
	mu    sync.Mutex
	items []domain.Notification
	keys  map[notificationKey]struct{}
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{keys: map[notificationKey]struct{}{}}
}

func (r *memNotificationRepo) Create(_ context.Context, n *domain.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := notificationKey{recipient: n.RecipientID, typ: n.Type}
	if n.RelatedID != nil {
		k.related = *n.RelatedID
	}
	if _, ok := r.keys[k]; ok {
		return false, nil
	}
	r.keys[k] = struct{}{}
	r.items = append(r.items, *n)
	return true, nil
}

func (r *memNotificationRepo) FindByRecipient(_ context.Context, recipientID string, unreadOnly bool, _ repository.Page) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.items {
		if n.RecipientID == recipientID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, id, recipientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id && r.items[i].RecipientID == recipientID {
			r.items[i].IsRead = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memNotificationRepo) all() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}

var (
	_ repository.OrderRepository        = (*memOrderRepo)(nil)
	_ repository.NotificationRepository = (*memNotificationRepo)(nil)
)
