package mocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/infra"
	"github.com/manasdevX/ShopEasy-sub001/internal/repository"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order, tasks []domain.OutboxTask) error {
	args := m.Called(ctx, order, tasks)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByCustomer(ctx context.Context, customerID string, page repository.Page) ([]domain.Order, error) {
	args := m.Called(ctx, customerID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderRepository) FindBySeller(ctx context.Context, sellerID string, page repository.Page) ([]domain.Order, error) {
	args := m.Called(ctx, sellerID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderRepository) SaveTransition(ctx context.Context, order *domain.Order, changes []domain.ItemChange, expectedVersion uint64) error {
	args := m.Called(ctx, order, changes, expectedVersion)
	return args.Error(0)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) FindByRecipient(ctx context.Context, recipientID string, unreadOnly bool, page repository.Page) ([]domain.Notification, error) {
	args := m.Called(ctx, recipientID, unreadOnly, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	args := m.Called(ctx, id, recipientID)
	return args.Error(0)
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Enqueue(ctx context.Context, tasks []domain.OutboxTask) error {
	args := m.Called(ctx, tasks)
	return args.Error(0)
}

func (m *MockOutboxRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]domain.OutboxTask, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OutboxTask), args.Error(1)
}

func (m *MockOutboxRepository) Claim(ctx context.Context, task *domain.OutboxTask, until time.Time) (bool, error) {
	args := m.Called(ctx, task, until)
	return args.Bool(0), args.Error(1)
}

func (m *MockOutboxRepository) MarkDone(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, task *domain.OutboxTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

type MockProductClient struct {
	mock.Mock
}

func (m *MockProductClient) GetProductByID(ctx context.Context, id string) (*infra.ProductInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infra.ProductInfo), args.Error(1)
}

func (m *MockProductClient) CategoryOf(ctx context.Context, productID string) (string, error) {
	args := m.Called(ctx, productID)
	return args.String(0), args.Error(1)
}

type MockDirectoryClient struct {
	mock.Mock
}

func (m *MockDirectoryClient) GetUser(ctx context.Context, id string) (*infra.UserContact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infra.UserContact), args.Error(1)
}

type MockMessagingClient struct {
	mock.Mock
}

func (m *MockMessagingClient) Send(ctx context.Context, msg infra.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) CreateOrder(ctx context.Context, amount decimal.Decimal) (*infra.GatewayOrder, error) {
	args := m.Called(ctx, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infra.GatewayOrder), args.Error(1)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) EmitToSeller(ctx context.Context, sellerID, event string, payload any) error {
	args := m.Called(ctx, sellerID, event, payload)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishEvent(ctx context.Context, key string, event any) error {
	args := m.Called(ctx, key, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	return nil
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(tasks []domain.OutboxTask) {
	m.Called(tasks)
}
