package service_test

import (
	"testing"

	"github.com/pedebar/pedebar/internal/domain/models"
	"github.com/pedebar/pedebar/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestAggregateLineItems_GroupsByName(t *testing.T) {
	items := []*models.OrderLineItem{
		{ID: 1, OrderID: 1, ProductName: "Corona", Purchased: 2, Remaining: 2},
		{ID: 2, OrderID: 1, ProductName: "Caipirinha", Purchased: 1, Remaining: 1},
		{ID: 3, OrderID: 2, ProductName: "Corona", Purchased: 3, Remaining: 3},
	}

	products := service.AggregateLineItems(items)
	assert.Len(t, products, 2)

	// Output ordered by product name.
	assert.Equal(t, "Caipirinha", products[0].ProductName)
	assert.Equal(t, 1, products[0].Total)

	assert.Equal(t, "Corona", products[1].ProductName)
	assert.Equal(t, 5, products[1].Total, "same product across two orders combines into one total")
	assert.Len(t, products[1].Items, 2)
}

func TestAggregateLineItems_OmitsZeroRemaining(t *testing.T) {
	items := []*models.OrderLineItem{
		{ID: 1, ProductName: "Corona", Purchased: 2, Remaining: 0},
		{ID: 2, ProductName: "Heineken", Purchased: 2, Remaining: 1},
	}

	products := service.AggregateLineItems(items)
	assert.Len(t, products, 1, "fully redeemed products are omitted, not returned as zero")
	assert.Equal(t, "Heineken", products[0].ProductName)
}

func TestAggregateLineItems_ItemsOrderedByID(t *testing.T) {
	items := []*models.OrderLineItem{
		{ID: 7, ProductName: "Corona", Remaining: 1},
		{ID: 3, ProductName: "Corona", Remaining: 2},
		{ID: 5, ProductName: "Corona", Remaining: 4},
	}

	products := service.AggregateLineItems(items)
	assert.Len(t, products, 1)
	assert.Equal(t, 7, products[0].Total)

	ids := []int64{products[0].Items[0].ID, products[0].Items[1].ID, products[0].Items[2].ID}
	assert.Equal(t, []int64{3, 5, 7}, ids, "contributing items keep ascending id order for deterministic draw-down")
}

func TestAggregateLineItems_Empty(t *testing.T) {
	assert.Empty(t, service.AggregateLineItems(nil))
	assert.Empty(t, service.AggregateLineItems([]*models.OrderLineItem{}))
}
