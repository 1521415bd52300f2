package service

import (
	"sort"

	"github.com/pedebar/pedebar/internal/domain/models"
)

// AggregateLineItems collapses redeemable line items into per-product totals.
// Grouping is by product *name*, not product id: the name is denormalized at
// checkout, so the same product bought across separate orders combines into a
// single figure. (Renaming a product between purchase and redemption would
// split its remaining quantity under the new and old names.)
//
// Contributing items inside each group are ordered by line item id ascending,
// which fixes the draw-down order. Products whose remaining quantity is zero
// across all items are omitted entirely. The result is ordered by product name
// for stable output; it is derived state and must be recomputed after every
// ledger mutation.
func AggregateLineItems(items []*models.OrderLineItem) []*models.AggregatedProduct {
	groups := make(map[string]*models.AggregatedProduct)
	for _, item := range items {
		if item.Remaining <= 0 {
			continue
		}
		group, ok := groups[item.ProductName]
		if !ok {
			group = &models.AggregatedProduct{ProductName: item.ProductName}
			groups[item.ProductName] = group
		}
		group.Total += item.Remaining
		group.Items = append(group.Items, item)
	}

	result := make([]*models.AggregatedProduct, 0, len(groups))
	for _, group := range groups {
		sort.Slice(group.Items, func(i, j int) bool {
			return group.Items[i].ID < group.Items[j].ID
		})
		result = append(result, group)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ProductName < result[j].ProductName
	})
	return result
}
