package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pedebar/pedebar/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage describes persistence for orders.
type OrderStorage interface {
	// CreateOrderTx inserts a new order inside the given transaction and
	// returns its id.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByExternalID(ctx context.Context, externalID string) (*models.Order, error)
	// MarkPaidTx flips an awaiting_payment order to paid. Returns false if no
	// row matched (order missing, already paid, or cancelled).
	MarkPaidTx(ctx context.Context, tx *sql.Tx, externalID string) (bool, error)
	// CancelExpired cancels every order still awaiting payment that was
	// created before the cutoff. The status predicate makes it safe to run at
	// any cadence: a paid order can never match.
	CancelExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (external_id, user_id, bar_id, total_cents, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`,
		order.ExternalID, order.UserID, order.BarID, order.TotalCents, order.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return id, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, external_id, user_id, bar_id, total_cents, status, created_at, paid_at
		 FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *orderRepository) GetOrderByExternalID(ctx context.Context, externalID string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, external_id, user_id, bar_id, total_cents, status, created_at, paid_at
		 FROM orders WHERE external_id = $1`, externalID)
	return scanOrder(row)
}

func scanOrder(row *sql.Row) (*models.Order, error) {
	order := &models.Order{}
	var paidAt sql.NullTime
	if err := row.Scan(&order.ID, &order.ExternalID, &order.UserID, &order.BarID,
		&order.TotalCents, &order.Status, &order.CreatedAt, &paidAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}
	return order, nil
}

func (r *orderRepository) MarkPaidTx(ctx context.Context, tx *sql.Tx, externalID string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, paid_at = NOW()
		 WHERE external_id = $2 AND status = $3`,
		models.OrderStatusPaid, externalID, models.OrderStatusAwaitingPayment)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *orderRepository) CancelExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1
		 WHERE status = $2 AND created_at < $3`,
		models.OrderStatusCancelled, models.OrderStatusAwaitingPayment, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
