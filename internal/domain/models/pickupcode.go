package models

import "time"

// PickupCode is a one-time redemption claim. Claim maps product name to the
// quantity this code entitles the bearer to collect; it may span line items
// from several orders even though OrderID references a single order for
// bookkeeping. Used and Invalidated are terminal flags and are never unset.
type PickupCode struct {
	ID          int64          `json:"id"`
	Code        string         `json:"code"`
	OrderID     int64          `json:"order_id"`
	UserID      int64          `json:"user_id"`
	BarID       int64          `json:"bar_id"`
	Claim       map[string]int `json:"claim"`
	Used        bool           `json:"used"`
	Invalidated bool           `json:"invalidated"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Active reports whether the code can still be consumed.
func (c *PickupCode) Active() bool {
	return !c.Used && !c.Invalidated
}
