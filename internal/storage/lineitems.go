package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pedebar/pedebar/internal/domain/models"
)

var (
	ErrLineItemNotFound = errors.New("line item not found")
	// ErrInsufficientQuantity is the low-level ledger guard: a decrement was
	// attempted for more than the line item has remaining.
	ErrInsufficientQuantity = errors.New("insufficient remaining quantity")
)

// LineItemStorage is the order line ledger: the source of truth for how much
// of each purchased line item is still redeemable.
type LineItemStorage interface {
	CreateLineItemsTx(ctx context.Context, tx *sql.Tx, orderID int64, items []*models.OrderLineItem) error
	// ListRedeemable returns every line item with remaining > 0 among the
	// user's paid orders for the given bar, ordered by id ascending.
	ListRedeemable(ctx context.Context, userID, barID int64) ([]*models.OrderLineItem, error)
	// ListRedeemableByOrder is the per-order variant for order detail screens.
	ListRedeemableByOrder(ctx context.Context, orderID int64) ([]*models.OrderLineItem, error)
	// LockRedeemableTx is ListRedeemable with FOR UPDATE row locks on the line
	// items, taken in ascending id order. Concurrent redemptions over the same
	// scope serialize here.
	LockRedeemableTx(ctx context.Context, tx *sql.Tx, userID, barID int64) ([]*models.OrderLineItem, error)
	// DecrementRemainingTx subtracts amount from a line item's remaining
	// quantity and returns the new value. The update is conditional on
	// remaining >= amount; a miss yields ErrInsufficientQuantity.
	DecrementRemainingTx(ctx context.Context, tx *sql.Tx, lineItemID int64, amount int) (int, error)
}

type lineItemRepository struct {
	db *sql.DB
}

func NewLineItemRepository(db *sql.DB) LineItemStorage {
	return &lineItemRepository{db: db}
}

func (r *lineItemRepository) CreateLineItemsTx(ctx context.Context, tx *sql.Tx, orderID int64, items []*models.OrderLineItem) error {
	for _, item := range items {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO order_line_items (order_id, product_id, product_name, unit_price_cents, purchased, remaining)
			 VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
			orderID, item.ProductID, item.ProductName, item.UnitPriceCents, item.Purchased,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to create line item: %w", err)
		}
		item.OrderID = orderID
		item.Remaining = item.Purchased
	}
	return nil
}

const redeemableQuery = `
	SELECT li.id, li.order_id, li.product_id, li.product_name, li.unit_price_cents, li.purchased, li.remaining
	FROM order_line_items li
	JOIN orders o ON o.id = li.order_id
	WHERE o.user_id = $1 AND o.bar_id = $2 AND o.status = 'paid' AND li.remaining > 0
	ORDER BY li.id`

func (r *lineItemRepository) ListRedeemable(ctx context.Context, userID, barID int64) ([]*models.OrderLineItem, error) {
	rows, err := r.db.QueryContext(ctx, redeemableQuery, userID, barID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLineItems(rows)
}

func (r *lineItemRepository) ListRedeemableByOrder(ctx context.Context, orderID int64) ([]*models.OrderLineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT li.id, li.order_id, li.product_id, li.product_name, li.unit_price_cents, li.purchased, li.remaining
		FROM order_line_items li
		JOIN orders o ON o.id = li.order_id
		WHERE o.id = $1 AND o.status = 'paid' AND li.remaining > 0
		ORDER BY li.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLineItems(rows)
}

func (r *lineItemRepository) LockRedeemableTx(ctx context.Context, tx *sql.Tx, userID, barID int64) ([]*models.OrderLineItem, error) {
	rows, err := tx.QueryContext(ctx, redeemableQuery+" FOR UPDATE OF li", userID, barID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "55P03" { // lock not available
				return nil, fmt.Errorf("line items are locked, please try again: %w", err)
			}
		}
		return nil, err
	}
	defer rows.Close()
	return scanLineItems(rows)
}

func (r *lineItemRepository) DecrementRemainingTx(ctx context.Context, tx *sql.Tx, lineItemID int64, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("decrement amount must be non-negative, got %d", amount)
	}
	var remaining int
	err := tx.QueryRowContext(ctx,
		`UPDATE order_line_items SET remaining = remaining - $2
		 WHERE id = $1 AND remaining >= $2
		 RETURNING remaining`,
		lineItemID, amount,
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the row does not exist or remaining < amount; both mean
			// the validated claim no longer holds.
			return 0, ErrInsufficientQuantity
		}
		return 0, err
	}
	return remaining, nil
}

func scanLineItems(rows *sql.Rows) ([]*models.OrderLineItem, error) {
	var items []*models.OrderLineItem
	for rows.Next() {
		item := &models.OrderLineItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.UnitPriceCents, &item.Purchased, &item.Remaining); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
