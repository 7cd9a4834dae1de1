package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/mocks"
	"github.com/manasdevX/ShopEasy-sub001/internal/repository"
)

func threeSellerOrder() *domain.Order {
	return CreateMockOrder(TestOrderID, domain.StatusProcessing,
		item("i-1", "p-1", "S1", domain.StatusProcessing),
		item("i-2", "p-2", "S2", domain.StatusProcessing),
		item("i-3", "p-3", "S1", domain.StatusProcessing),
		item("i-4", "p-4", "S3", domain.StatusProcessing),
	)
}

func TestNotificationService_FanOut(t *testing.T) {
	notes := newMemNotificationRepo()
	b := new(mocks.MockBroadcaster)
	b.On("EmitToSeller", mock.Anything, mock.Anything, EventNewNotification, mock.AnythingOfType("*domain.Notification")).Return(nil)
	s := NewNotificationService(nil, notes, b)

	require.NoError(t, s.FanOut(context.Background(), threeSellerOrder()))

	got := notes.all()
	require.Len(t, got, 3)
	recipients := map[string]bool{}
	for _, n := range got {
		recipients[n.RecipientID] = true
		assert.Equal(t, domain.NotificationOrder, n.Type)
		assert.Equal(t, "New order received", n.Title)
		assert.Equal(t, "Order #5F2B9C1E has been placed with items worth 800.00.", n.Message)
		require.NotNil(t, n.RelatedID)
		assert.Equal(t, TestOrderID, *n.RelatedID)
		assert.False(t, n.IsRead)
	}
	assert.Equal(t, map[string]bool{"S1": true, "S2": true, "S3": true}, recipients)
	b.AssertNumberOfCalls(t, "EmitToSeller", 3)
}

func TestNotificationService_FanOutRetryDoesNotDuplicate(t *testing.T) {
	notes := newMemNotificationRepo()
	b := new(mocks.MockBroadcaster)
	b.On("EmitToSeller", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s := NewNotificationService(nil, notes, b)
	o := threeSellerOrder()

	require.NoError(t, s.FanOut(context.Background(), o))
	require.NoError(t, s.FanOut(context.Background(), o))

	assert.Len(t, notes.all(), 3)
	b.AssertNumberOfCalls(t, "EmitToSeller", 3)
}

func TestNotificationService_FanOutIsolatesFailures(t *testing.T) {
	repo := new(mocks.MockNotificationRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool { return n.RecipientID == "S2" })).
		Return(false, domain.ErrPersistence)
	repo.On("Create", mock.Anything, mock.Anything).Return(true, nil)
	b := new(mocks.MockBroadcaster)
	b.On("EmitToSeller", mock.Anything, "S1", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	b.On("EmitToSeller", mock.Anything, "S3", mock.Anything, mock.Anything).Return(nil)
	s := NewNotificationService(nil, repo, b)

	err := s.FanOut(context.Background(), threeSellerOrder())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Contains(t, err.Error(), "seller S2")
	assert.NotContains(t, err.Error(), "seller S1")
	repo.AssertNumberOfCalls(t, "Create", 3)
	b.AssertExpectations(t)
}

func TestNotificationService_HandleTask(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*mocks.MockOrderRepository)
		wantErr    bool
		wantNotes  int
	}{
		{
			name: "loads the order and fans out",
			setupMocks: func(orders *mocks.MockOrderRepository) {
				orders.On("FindByID", mock.Anything, TestOrderID).Return(threeSellerOrder(), nil)
			},
			wantNotes: 3,
		},
		{
			name: "order vanished",
			setupMocks: func(orders *mocks.MockOrderRepository) {
				orders.On("FindByID", mock.Anything, TestOrderID).Return(nil, nil)
			},
			wantErr: true,
		},
		{
			name: "store error",
			setupMocks: func(orders *mocks.MockOrderRepository) {
				orders.On("FindByID", mock.Anything, TestOrderID).Return(nil, domain.ErrPersistence)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(mocks.MockOrderRepository)
			tt.setupMocks(orders)
			notes := newMemNotificationRepo()
			b := new(mocks.MockBroadcaster)
			b.On("EmitToSeller", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
			s := NewNotificationService(orders, notes, b)

			err := s.HandleTask(context.Background(), domain.OutboxTask{Kind: domain.TaskNotifySellers, OrderID: TestOrderID})

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, notes.all(), tt.wantNotes)
		})
	}
}

func TestNotificationService_ListAndMarkRead(t *testing.T) {
	ctx := context.Background()
	notes := newMemNotificationRepo()
	b := new(mocks.MockBroadcaster)
	b.On("EmitToSeller", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s := NewNotificationService(nil, notes, b)
	require.NoError(t, s.FanOut(ctx, threeSellerOrder()))

	s1 := seller("S1")
	list, err := s.List(ctx, s1, true, repository.Page{})
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.ErrorIs(t, s.MarkRead(ctx, seller("S2"), list[0].ID), domain.ErrNotFound)
	require.NoError(t, s.MarkRead(ctx, s1, list[0].ID))

	unread, err := s.List(ctx, s1, true, repository.Page{})
	require.NoError(t, err)
	assert.Empty(t, unread)
	assert.NotNil(t, unread)
}
