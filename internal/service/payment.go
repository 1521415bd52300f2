package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pedebar/pedebar/internal/domain/models"
	"github.com/pedebar/pedebar/internal/storage"
)

// PaymentService consumes the gateway's asynchronous "paid" signal. It is the
// only path that moves an order from awaiting_payment to paid.
type PaymentService interface {
	// ConfirmPayment marks the referenced order paid. Idempotent on repeated
	// gateway deliveries: confirming an already-paid order is a no-op. A
	// cancelled order is never resurrected.
	ConfirmPayment(ctx context.Context, orderRef string) error
}

type paymentService struct {
	log       *slog.Logger
	db        *sql.DB
	orderRepo storage.OrderStorage
}

func NewPaymentService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage) PaymentService {
	return &paymentService{
		log:       log,
		db:        db,
		orderRepo: orderRepo,
	}
}

func (s *paymentService) ConfirmPayment(ctx context.Context, orderRef string) error {
	const op = "service.PaymentService.ConfirmPayment"
	logger := s.log.With(slog.String("op", op), slog.String("orderRef", orderRef))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	ok, err := s.orderRepo.MarkPaidTx(ctx, tx, orderRef)
	if err != nil {
		logger.Error("failed to mark order paid", slog.Any("error", err))
		return fmt.Errorf("%s: failed to mark order paid: %w", op, err)
	}
	if !ok {
		// The guarded update matched nothing: missing, already paid, or
		// cancelled. Only the last two exist as distinct outcomes.
		order, err := s.orderRepo.GetOrderByExternalID(ctx, orderRef)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				logger.Warn("payment for unknown order")
				return fmt.Errorf("%s: %w", op, storage.ErrOrderNotFound)
			}
			return fmt.Errorf("%s: failed to load order: %w", op, err)
		}
		switch order.Status {
		case models.OrderStatusPaid:
			logger.Info("order already paid, ignoring duplicate confirmation")
			return nil
		case models.OrderStatusCancelled:
			logger.Warn("payment arrived for cancelled order")
			return fmt.Errorf("%s: %w", op, ErrOrderCancelled)
		default:
			return fmt.Errorf("%s: order in unexpected status %q", op, order.Status)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order marked paid")
	return nil
}
