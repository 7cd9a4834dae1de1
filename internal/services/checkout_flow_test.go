package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/manasdevX/ShopEasy-sub001/internal/cache"
	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/infra"
	"github.com/manasdevX/ShopEasy-sub001/internal/mocks"
	"github.com/manasdevX/ShopEasy-sub001/internal/payment"
	"github.com/manasdevX/ShopEasy-sub001/internal/sideeffects"
)

// Checkout through to every side effect, with only the network edges mocked.
func TestCheckoutFlow_CODTwoSellers(t *testing.T) {
	ctx := context.Background()
	orders := newMemOrderRepo(t)
	notes := newMemNotificationRepo()

	outbox := new(mocks.MockOutboxRepository)
	outbox.On("MarkDone", mock.Anything, mock.Anything).Return(nil).Times(4)

	store := cache.NewMemoryStore()
	products := new(mocks.MockProductClient)
	products.On("CategoryOf", mock.Anything, "p-1").Return("kitchen", nil)
	products.On("CategoryOf", mock.Anything, "p-2").Return("", nil)
	seed := []string{"product:p-1", "products:list:page=1", "products:category:kitchen:page=1",
		"products:seller:S1:page=1", "orders:customer:" + TestCustomerID + ":limit=20&offset=0", "product:unrelated"}
	for _, k := range seed {
		require.NoError(t, store.Set(ctx, k, []byte(`[]`), cache.DefaultTTL))
	}

	broadcaster := new(mocks.MockBroadcaster)
	broadcaster.On("EmitToSeller", mock.Anything, mock.Anything, EventNewNotification, mock.Anything).Return(nil).Twice()
	directory := new(mocks.MockDirectoryClient)
	directory.On("GetUser", mock.Anything, TestCustomerID).Return(&infra.UserContact{ID: TestCustomerID, Email: "asha@example.com"}, nil)
	messaging := new(mocks.MockMessagingClient)
	messaging.On("Send", mock.Anything, mock.MatchedBy(func(m infra.Message) bool {
		return m.Params["items"] == "2 x Kettle @ 500.00\n1 x Mug @ 300.00\nItems: 1300.00\nTax: 65.00\nShipping: 40.00\nTotal: 1405.00"
	})).Return(nil).Once()
	events := new(mocks.MockEventPublisher)
	events.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	runner := sideeffects.NewRunner(outbox, sideeffects.Options{})
	orderSvc := NewOrderService(orders, outbox, payment.NewVerifier(TestSecret), new(mocks.MockGatewayClient), runner)
	orderSvc.SetCache(store, cache.NewInvalidator(store, products), 0)
	orderSvc.SetEventPublisher(events)
	RegisterTaskHandlers(runner,
		orderSvc,
		NewNotificationService(orders, notes, broadcaster),
		NewConfirmationService(orders, directory, messaging),
	)

	order, err := orderSvc.CreateCODOrder(ctx, TwoSellerCheckout())
	require.NoError(t, err)
	runner.Wait()

	assert.Equal(t, domain.StatusProcessing, order.Status)
	assert.True(t, order.ItemsPrice.Equal(dec("1300")))
	assert.True(t, order.TotalPrice.Equal(order.ItemsPrice.Add(order.TaxPrice).Add(order.ShippingPrice)))

	got := notes.all()
	require.Len(t, got, 2)
	recipients := []string{got[0].RecipientID, got[1].RecipientID}
	assert.ElementsMatch(t, []string{"S1", "S2"}, recipients)
	for _, n := range got {
		assert.Equal(t, order.ID, *n.RelatedID)
	}

	assert.Equal(t, 1, store.Len(), "only the unrelated product entry survives")
	_, err = store.Get(ctx, "product:unrelated")
	assert.NoError(t, err)

	outbox.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
	messaging.AssertExpectations(t)
	events.AssertExpectations(t)
}
