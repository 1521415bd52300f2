package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pedebar/pedebar/internal/domain/models"
	"github.com/pedebar/pedebar/internal/storage"
)

// SummaryService serves the "N items available for pickup" figures. Read-only;
// every call recomputes the aggregation from the ledger.
type SummaryService interface {
	// RedeemableSummary aggregates across all of the user's paid orders for
	// one bar.
	RedeemableSummary(ctx context.Context, userID, barID int64) ([]*models.AggregatedProduct, error)
	// OrderSummary aggregates a single order, identified by its external
	// reference. The order must belong to the requesting user.
	OrderSummary(ctx context.Context, userID int64, orderRef string) ([]*models.AggregatedProduct, error)
}

type summaryService struct {
	log          *slog.Logger
	orderRepo    storage.OrderStorage
	lineItemRepo storage.LineItemStorage
}

func NewSummaryService(log *slog.Logger, orderRepo storage.OrderStorage, lineItemRepo storage.LineItemStorage) SummaryService {
	return &summaryService{
		log:          log,
		orderRepo:    orderRepo,
		lineItemRepo: lineItemRepo,
	}
}

func (s *summaryService) RedeemableSummary(ctx context.Context, userID, barID int64) ([]*models.AggregatedProduct, error) {
	const op = "service.SummaryService.RedeemableSummary"

	items, err := s.lineItemRepo.ListRedeemable(ctx, userID, barID)
	if err != nil {
		s.log.Error("failed to list redeemable items", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list redeemable items: %w", op, err)
	}
	return AggregateLineItems(items), nil
}

func (s *summaryService) OrderSummary(ctx context.Context, userID int64, orderRef string) ([]*models.AggregatedProduct, error) {
	const op = "service.SummaryService.OrderSummary"

	order, err := s.orderRepo.GetOrderByExternalID(ctx, orderRef)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("%s: failed to load order: %w", op, err)
	}
	// Another user's order is indistinguishable from a missing one.
	if order.UserID != userID {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrOrderNotFound)
	}

	items, err := s.lineItemRepo.ListRedeemableByOrder(ctx, order.ID)
	if err != nil {
		s.log.Error("failed to list order line items", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list order line items: %w", op, err)
	}
	return AggregateLineItems(items), nil
}
