package service

import "errors"

var (
	// ErrInsufficientAvailability means the requested redemption quantity
	// exceeds what the aggregation currently reports as available. Recoverable:
	// the user re-selects.
	ErrInsufficientAvailability = errors.New("requested quantity exceeds available quantity")
	// ErrEmptyClaim means the request carried no positive quantity at all.
	ErrEmptyClaim = errors.New("redemption claim is empty")
	// ErrInvalidQuantity means a requested quantity was negative.
	ErrInvalidQuantity = errors.New("requested quantities must be non-negative")

	// Verification outcomes. Each maps to a distinct user-facing message;
	// they are never collapsed into a generic "invalid code".
	ErrCodeNotFound    = errors.New("code not found")
	ErrAlreadyRedeemed = errors.New("code already redeemed")
	ErrCodeSuperseded  = errors.New("code is no longer valid; a newer code may exist")

	// ErrOrderCancelled means a payment confirmation arrived for an order the
	// expiry sweep already cancelled.
	ErrOrderCancelled = errors.New("order has been cancelled")

	ErrInvalidCredentials = errors.New("invalid credentials")
)
