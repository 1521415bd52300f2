package models

// AggregatedProduct is a derived view: the total remaining quantity of one
// product name across all contributing line items of a scope. Never persisted;
// recomputed from the ledger on every use.
type AggregatedProduct struct {
	ProductName string           `json:"product_name"`
	Total       int              `json:"total"`
	Items       []*OrderLineItem `json:"items"`
}
