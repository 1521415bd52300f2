package service_test

import (
	"context"
	"testing"

	"github.com/pedebar/pedebar/internal/domain/models"
	"github.com/pedebar/pedebar/internal/service"
	"github.com/pedebar/pedebar/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeemableSummary_AggregatesPaidOrders(t *testing.T) {
	orders := newFakeOrderRepo()
	lineItems := newFakeLineItemRepo()
	svc := service.NewSummaryService(testLogger(), orders, lineItems)

	lineItems.addPaidOrder(1, 10, 7)
	lineItems.addPaidOrder(2, 10, 7)
	lineItems.addItem(&models.OrderLineItem{ID: 1, OrderID: 1, ProductName: "Brahma", Purchased: 2, Remaining: 2})
	lineItems.addItem(&models.OrderLineItem{ID: 2, OrderID: 2, ProductName: "Brahma", Purchased: 3, Remaining: 1})
	lineItems.addItem(&models.OrderLineItem{ID: 3, OrderID: 2, ProductName: "Caipirinha", Purchased: 1, Remaining: 0})

	products, err := svc.RedeemableSummary(context.Background(), 10, 7)
	require.NoError(t, err)
	require.Len(t, products, 1, "fully redeemed caipirinha drops out")
	assert.Equal(t, "Brahma", products[0].ProductName)
	assert.Equal(t, 3, products[0].Total)
}

func TestOrderSummary_OwnOrder(t *testing.T) {
	orders := newFakeOrderRepo()
	lineItems := newFakeLineItemRepo()
	svc := service.NewSummaryService(testLogger(), orders, lineItems)

	orders.add(&models.Order{ID: 1, ExternalID: "ref-1", UserID: 10, BarID: 7, Status: models.OrderStatusPaid})
	lineItems.addPaidOrder(1, 10, 7)
	lineItems.addItem(&models.OrderLineItem{ID: 1, OrderID: 1, ProductName: "Brahma", Purchased: 2, Remaining: 2})

	products, err := svc.OrderSummary(context.Background(), 10, "ref-1")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 2, products[0].Total)
}

func TestOrderSummary_ForeignOrderLooksMissing(t *testing.T) {
	orders := newFakeOrderRepo()
	svc := service.NewSummaryService(testLogger(), orders, newFakeLineItemRepo())

	orders.add(&models.Order{ID: 1, ExternalID: "ref-1", UserID: 99, BarID: 7, Status: models.OrderStatusPaid})

	_, err := svc.OrderSummary(context.Background(), 10, "ref-1")
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}

func TestOrderSummary_UnknownRef(t *testing.T) {
	svc := service.NewSummaryService(testLogger(), newFakeOrderRepo(), newFakeLineItemRepo())

	_, err := svc.OrderSummary(context.Background(), 10, "ref-missing")
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}
