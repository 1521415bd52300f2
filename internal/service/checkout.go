package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pedebar/pedebar/internal/domain/models"
	"github.com/pedebar/pedebar/internal/storage"
)

// CheckoutItem is one product line of a checkout request. Name and unit price
// are denormalized into the line item so later edits to the catalog cannot
// change what was bought.
type CheckoutItem struct {
	ProductID      string
	ProductName    string
	UnitPriceCents int
	Quantity       int
}

// CheckoutService creates orders. A new order starts in awaiting_payment; its
// line items become redeemable only once the payment gateway confirms it.
type CheckoutService interface {
	Checkout(ctx context.Context, userID, barID int64, items []CheckoutItem) (*models.Order, error)
}

type checkoutService struct {
	log          *slog.Logger
	db           *sql.DB
	orderRepo    storage.OrderStorage
	lineItemRepo storage.LineItemStorage
}

func NewCheckoutService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, lineItemRepo storage.LineItemStorage) CheckoutService {
	return &checkoutService{
		log:          log,
		db:           db,
		orderRepo:    orderRepo,
		lineItemRepo: lineItemRepo,
	}
}

func (s *checkoutService) Checkout(ctx context.Context, userID, barID int64, items []CheckoutItem) (*models.Order, error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("barID", barID))

	if len(items) == 0 {
		return nil, fmt.Errorf("%s: order must contain at least one item", op)
	}
	total := 0
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%s: item %q quantity must be positive", op, item.ProductName)
		}
		if item.UnitPriceCents < 0 {
			return nil, fmt.Errorf("%s: item %q price must be non-negative", op, item.ProductName)
		}
		total += item.Quantity * item.UnitPriceCents
	}

	order := &models.Order{
		ExternalID: uuid.NewString(),
		UserID:     userID,
		BarID:      barID,
		TotalCents: total,
		Status:     models.OrderStatusAwaitingPayment,
		CreatedAt:  time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	orderID, err := s.orderRepo.CreateOrderTx(ctx, tx, order)
	if err != nil {
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}
	order.ID = orderID

	lineItems := make([]*models.OrderLineItem, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, &models.OrderLineItem{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			UnitPriceCents: item.UnitPriceCents,
			Purchased:      item.Quantity,
		})
	}
	if err := s.lineItemRepo.CreateLineItemsTx(ctx, tx, orderID, lineItems); err != nil {
		logger.Error("failed to create line items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create line items: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order created", slog.Int64("orderID", orderID), slog.String("orderRef", order.ExternalID))
	return order, nil
}
