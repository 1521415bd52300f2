package models

// OrderLineItem is one product line within an order. ProductName and
// UnitPriceCents are denormalized at checkout time; Remaining starts equal to
// Purchased and only ever decreases, one redemption at a time.
type OrderLineItem struct {
	ID             int64  `json:"id"`
	OrderID        int64  `json:"order_id"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	UnitPriceCents int    `json:"unit_price_cents"`
	Purchased      int    `json:"purchased"`
	Remaining      int    `json:"remaining"`
}
