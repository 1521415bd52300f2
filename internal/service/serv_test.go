package service_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/pedebar/pedebar/internal/domain/models"
	"github.com/pedebar/pedebar/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeLineItemRepo is an in-memory ledger keyed by line item id.
type fakeLineItemRepo struct {
	items map[int64]*models.OrderLineItem
	// orders maps order id to (userID, barID, status) for scope filtering.
	orders map[int64]*models.Order
	// failDecrement forces every decrement to miss, simulating a concurrent
	// writer between validation and draw-down.
	failDecrement bool
	decrements    int
}

var _ storage.LineItemStorage = (*fakeLineItemRepo)(nil)

func newFakeLineItemRepo() *fakeLineItemRepo {
	return &fakeLineItemRepo{
		items:  make(map[int64]*models.OrderLineItem),
		orders: make(map[int64]*models.Order),
	}
}

func (f *fakeLineItemRepo) addPaidOrder(orderID, userID, barID int64) {
	f.orders[orderID] = &models.Order{ID: orderID, UserID: userID, BarID: barID, Status: models.OrderStatusPaid}
}

func (f *fakeLineItemRepo) addItem(item *models.OrderLineItem) {
	f.items[item.ID] = item
}

func (f *fakeLineItemRepo) redeemable(userID, barID int64) []*models.OrderLineItem {
	var out []*models.OrderLineItem
	for _, item := range f.items {
		order, ok := f.orders[item.OrderID]
		if !ok || order.UserID != userID || order.BarID != barID || order.Status != models.OrderStatusPaid {
			continue
		}
		if item.Remaining > 0 {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeLineItemRepo) CreateLineItemsTx(ctx context.Context, tx *sql.Tx, orderID int64, items []*models.OrderLineItem) error {
	for _, item := range items {
		item.OrderID = orderID
		item.Remaining = item.Purchased
		item.ID = int64(len(f.items) + 1)
		f.items[item.ID] = item
	}
	return nil
}

func (f *fakeLineItemRepo) ListRedeemable(ctx context.Context, userID, barID int64) ([]*models.OrderLineItem, error) {
	return f.redeemable(userID, barID), nil
}

func (f *fakeLineItemRepo) ListRedeemableByOrder(ctx context.Context, orderID int64) ([]*models.OrderLineItem, error) {
	var out []*models.OrderLineItem
	for _, item := range f.items {
		order, ok := f.orders[item.OrderID]
		if ok && order.ID == orderID && order.Status == models.OrderStatusPaid && item.Remaining > 0 {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLineItemRepo) LockRedeemableTx(ctx context.Context, tx *sql.Tx, userID, barID int64) ([]*models.OrderLineItem, error) {
	return f.redeemable(userID, barID), nil
}

func (f *fakeLineItemRepo) DecrementRemainingTx(ctx context.Context, tx *sql.Tx, lineItemID int64, amount int) (int, error) {
	if f.failDecrement {
		return 0, storage.ErrInsufficientQuantity
	}
	item, ok := f.items[lineItemID]
	if !ok || item.Remaining < amount {
		return 0, storage.ErrInsufficientQuantity
	}
	item.Remaining -= amount
	f.decrements += amount
	return item.Remaining, nil
}

// fakeCodeRepo is an in-memory pickup code registry.
type fakeCodeRepo struct {
	codes  map[int64]*models.PickupCode
	nextID int64
	// duplicateOnce makes the first insert collide, exercising the retry.
	duplicateOnce bool
}

var _ storage.CodeStorage = (*fakeCodeRepo)(nil)

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{codes: make(map[int64]*models.PickupCode)}
}

func (f *fakeCodeRepo) InsertCodeTx(ctx context.Context, tx *sql.Tx, code *models.PickupCode) (int64, error) {
	if f.duplicateOnce {
		f.duplicateOnce = false
		return 0, storage.ErrDuplicateCode
	}
	f.nextID++
	stored := *code
	stored.ID = f.nextID
	f.codes[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeCodeRepo) GetByCode(ctx context.Context, code string) (*models.PickupCode, error) {
	for _, c := range f.codes {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, storage.ErrCodeNotFound
}

func (f *fakeCodeRepo) LockByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*models.PickupCode, error) {
	return f.GetByCode(ctx, code)
}

func (f *fakeCodeRepo) GetActiveByScopeTx(ctx context.Context, tx *sql.Tx, userID, barID int64) (*models.PickupCode, error) {
	for _, c := range f.codes {
		if c.UserID == userID && c.BarID == barID && c.Active() {
			return c, nil
		}
	}
	return nil, storage.ErrCodeNotFound
}

func (f *fakeCodeRepo) InvalidateTx(ctx context.Context, tx *sql.Tx, codeID int64) error {
	if c, ok := f.codes[codeID]; ok && c.Active() {
		c.Invalidated = true
	}
	return nil
}

func (f *fakeCodeRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, codeID int64) error {
	c, ok := f.codes[codeID]
	if !ok {
		return storage.ErrCodeNotFound
	}
	if c.Used {
		return storage.ErrCodeAlreadyUsed
	}
	if c.Invalidated {
		return storage.ErrCodeInvalidated
	}
	c.Used = true
	return nil
}

func (f *fakeCodeRepo) active() []*models.PickupCode {
	var out []*models.PickupCode
	for _, c := range f.codes {
		if c.Active() {
			out = append(out, c)
		}
	}
	return out
}

// fakeOrderRepo is an in-memory order store shared with fakeLineItemRepo via
// the same models.
type fakeOrderRepo struct {
	orders map[int64]*models.Order
	nextID int64
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[int64]*models.Order)}
}

func (f *fakeOrderRepo) add(order *models.Order) {
	f.orders[order.ID] = order
}

func (f *fakeOrderRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	f.nextID++
	order.ID = f.nextID
	f.orders[order.ID] = order
	return order.ID, nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	if order, ok := f.orders[id]; ok {
		return order, nil
	}
	return nil, storage.ErrOrderNotFound
}

func (f *fakeOrderRepo) GetOrderByExternalID(ctx context.Context, externalID string) (*models.Order, error) {
	for _, order := range f.orders {
		if order.ExternalID == externalID {
			return order, nil
		}
	}
	return nil, storage.ErrOrderNotFound
}

func (f *fakeOrderRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, externalID string) (bool, error) {
	for _, order := range f.orders {
		if order.ExternalID == externalID && order.Status == models.OrderStatusAwaitingPayment {
			order.Status = models.OrderStatusPaid
			now := time.Now()
			order.PaidAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrderRepo) CancelExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for _, order := range f.orders {
		if order.Status == models.OrderStatusAwaitingPayment && order.CreatedAt.Before(cutoff) {
			order.Status = models.OrderStatusCancelled
			n++
		}
	}
	return n, nil
}
