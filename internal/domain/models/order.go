package models

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	OrderStatusPaid            OrderStatus = "paid"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// validNext lists the allowed status transitions. Paid and cancelled are terminal.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusAwaitingPayment: {OrderStatusPaid: true, OrderStatusCancelled: true},
	OrderStatusPaid:            {},
	OrderStatusCancelled:       {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// Order is a single purchase transaction for one bar.
// ExternalID is the public reference handed to the payment gateway.
type Order struct {
	ID         int64       `json:"id"`
	ExternalID string      `json:"external_id"`
	UserID     int64       `json:"user_id"`
	BarID      int64       `json:"bar_id"`
	TotalCents int         `json:"total_cents"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	PaidAt     *time.Time  `json:"paid_at,omitempty"`
}
