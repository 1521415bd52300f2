package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pedebar/pedebar/internal/metrics"
	"github.com/pedebar/pedebar/internal/storage"
)

// VerificationResult is what staff see before handing items over: the claim
// plus enough order context to identify the customer purchase.
type VerificationResult struct {
	Code     string         `json:"code"`
	OrderRef string         `json:"order_ref"`
	BarID    int64          `json:"bar_id"`
	Claim    map[string]int `json:"claim"`
	IssuedAt time.Time      `json:"issued_at"`
}

// VerificationService is the consumption side of the code lifecycle. Verify is
// read-only; Confirm performs the single terminal state transition that
// finalizes a physical handover. Confirm never touches the ledger — line items
// were already decremented when the code was issued.
type VerificationService interface {
	Verify(ctx context.Context, code string) (*VerificationResult, error)
	Confirm(ctx context.Context, code string) (*VerificationResult, error)
}

type verificationService struct {
	log       *slog.Logger
	db        *sql.DB
	codeRepo  storage.CodeStorage
	orderRepo storage.OrderStorage
}

func NewVerificationService(log *slog.Logger, db *sql.DB, codeRepo storage.CodeStorage, orderRepo storage.OrderStorage) VerificationService {
	return &verificationService{
		log:       log,
		db:        db,
		codeRepo:  codeRepo,
		orderRepo: orderRepo,
	}
}

func (s *verificationService) Verify(ctx context.Context, code string) (*VerificationResult, error) {
	const op = "service.VerificationService.Verify"
	logger := s.log.With(slog.String("op", op), slog.String("code", code))

	row, err := s.codeRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrCodeNotFound) {
			logger.Warn("code not found")
			return nil, fmt.Errorf("%s: %w", op, ErrCodeNotFound)
		}
		logger.Error("failed to look up code", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to look up code: %w", op, err)
	}

	// Used and invalidated are distinct outcomes: "already redeemed" and
	// "superseded by a newer code" mean different things at the counter.
	if row.Used {
		logger.Warn("code already redeemed", slog.Int64("codeID", row.ID))
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyRedeemed)
	}
	if row.Invalidated {
		logger.Warn("code superseded", slog.Int64("codeID", row.ID))
		return nil, fmt.Errorf("%s: %w", op, ErrCodeSuperseded)
	}

	result, err := s.buildResult(ctx, row.Code, row.OrderID, row.BarID, row.Claim, row.CreatedAt)
	if err != nil {
		logger.Error("failed to load order context", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("code verified", slog.Int64("codeID", row.ID))
	return result, nil
}

func (s *verificationService) Confirm(ctx context.Context, code string) (*VerificationResult, error) {
	const op = "service.VerificationService.Confirm"
	logger := s.log.With(slog.String("op", op), slog.String("code", code))

	status := "failure"
	defer func() {
		metrics.RecordConfirmation(status)
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	// Re-validate under lock: the code may have gone stale between the staff
	// verify and this confirm.
	row, err := s.codeRepo.LockByCodeTx(ctx, tx, code)
	if err != nil {
		if errors.Is(err, storage.ErrCodeNotFound) {
			status = "not_found"
			logger.Warn("code not found")
			return nil, fmt.Errorf("%s: %w", op, ErrCodeNotFound)
		}
		logger.Error("failed to look up code", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to look up code: %w", op, err)
	}
	if row.Used {
		status = "already_used"
		logger.Warn("code already redeemed", slog.Int64("codeID", row.ID))
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyRedeemed)
	}
	if row.Invalidated {
		status = "superseded"
		logger.Warn("code superseded", slog.Int64("codeID", row.ID))
		return nil, fmt.Errorf("%s: %w", op, ErrCodeSuperseded)
	}

	if err := s.codeRepo.ConsumeTx(ctx, tx, row.ID); err != nil {
		logger.Error("failed to consume code", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to consume code: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	result, err := s.buildResult(ctx, row.Code, row.OrderID, row.BarID, row.Claim, row.CreatedAt)
	if err != nil {
		// The handover is already finalized; context is display-only here.
		logger.Error("failed to load order context after confirm", slog.Any("error", err))
		result = &VerificationResult{Code: row.Code, BarID: row.BarID, Claim: row.Claim, IssuedAt: row.CreatedAt}
	}

	status = "success"
	logger.Info("code confirmed", slog.Int64("codeID", row.ID))
	return result, nil
}

func (s *verificationService) buildResult(ctx context.Context, code string, orderID, barID int64, claim map[string]int, issuedAt time.Time) (*VerificationResult, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load referenced order: %w", err)
	}
	return &VerificationResult{
		Code:     code,
		OrderRef: order.ExternalID,
		BarID:    barID,
		Claim:    claim,
		IssuedAt: issuedAt,
	}, nil
}
