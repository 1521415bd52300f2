package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"time"

	"github.com/pedebar/pedebar/internal/domain/models"
	"github.com/pedebar/pedebar/internal/metrics"
	"github.com/pedebar/pedebar/internal/storage"
)

// maxCodeAttempts bounds collision retries when minting a pickup code.
const maxCodeAttempts = 5

// IssuedCode is a pickup code together with the external reference of the
// order it is booked against, for display and QR payloads.
type IssuedCode struct {
	*models.PickupCode
	OrderRef string `json:"order_ref"`
}

// RedemptionService orchestrates a redemption request end to end: validate the
// requested quantities against a fresh aggregation, draw the ledger down, retire
// any prior active code for the scope and issue a new one, all inside a single
// database transaction.
type RedemptionService interface {
	RequestRedemption(ctx context.Context, userID, barID int64, requested map[string]int) (*IssuedCode, error)
}

type redemptionService struct {
	log          *slog.Logger
	db           *sql.DB
	lineItemRepo storage.LineItemStorage
	codeRepo     storage.CodeStorage
	orderRepo    storage.OrderStorage
}

func NewRedemptionService(log *slog.Logger, db *sql.DB, lineItemRepo storage.LineItemStorage, codeRepo storage.CodeStorage, orderRepo storage.OrderStorage) RedemptionService {
	return &redemptionService{
		log:          log,
		db:           db,
		lineItemRepo: lineItemRepo,
		codeRepo:     codeRepo,
		orderRepo:    orderRepo,
	}
}

// RequestRedemption validates and executes one redemption attempt.
//
// A conditional-decrement miss (storage.ErrInsufficientQuantity) should not
// happen while the scope's rows are locked; if it does, it is treated as a
// concurrency conflict: validation is retried once on a fresh transaction and
// a second miss surfaces as ErrInsufficientAvailability.
func (s *redemptionService) RequestRedemption(ctx context.Context, userID, barID int64, requested map[string]int) (*IssuedCode, error) {
	const op = "service.RedemptionService.RequestRedemption"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("barID", barID))

	start := time.Now()
	status := "failure"
	defer func() {
		metrics.RecordRedemptionDuration(status, time.Since(start).Seconds())
	}()

	claim, err := normalizeClaim(requested)
	if err != nil {
		logger.Warn("rejected claim", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("starting redemption", slog.Any("claim", claim))

	code, err := s.requestOnce(ctx, logger, userID, barID, claim)
	if errors.Is(err, storage.ErrInsufficientQuantity) {
		logger.Warn("decrement conflict, revalidating once")
		code, err = s.requestOnce(ctx, logger, userID, barID, claim)
		if errors.Is(err, storage.ErrInsufficientQuantity) {
			err = ErrInsufficientAvailability
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	issued := &IssuedCode{PickupCode: code}
	order, err := s.orderRepo.GetOrderByID(ctx, code.OrderID)
	if err != nil {
		// The code is already committed; the reference is display-only.
		logger.Error("failed to load referenced order", slog.Any("error", err))
	} else {
		issued.OrderRef = order.ExternalID
	}

	status = "success"
	logger.Info("redemption issued", slog.String("code", code.Code), slog.Int64("codeID", code.ID))
	return issued, nil
}

// requestOnce runs the whole validate -> draw down -> issue sequence as one
// transaction. The scope's redeemable line items are locked FOR UPDATE before
// validation, so concurrent requests over the same items serialize and the
// loser validates against the already-decremented ledger.
func (s *redemptionService) requestOnce(ctx context.Context, logger *slog.Logger, userID, barID int64, claim map[string]int) (*models.PickupCode, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := s.codeRepo.GetActiveByScopeTx(ctx, tx, userID, barID)
	if err != nil && !errors.Is(err, storage.ErrCodeNotFound) {
		return nil, fmt.Errorf("failed to load active code: %w", err)
	}

	// Idempotent re-entry: an unchanged claim means the ledger was already
	// drawn down when the existing code was issued. Return it as is.
	if existing != nil && maps.Equal(existing.Claim, claim) {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		logger.Info("returning existing active code", slog.Int64("codeID", existing.ID))
		return existing, nil
	}

	items, err := s.lineItemRepo.LockRedeemableTx(ctx, tx, userID, barID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock redeemable line items: %w", err)
	}

	// Validation runs against an aggregation computed right here, inside the
	// locked transaction; never against anything cached.
	products := AggregateLineItems(items)
	plan, err := planDrawdown(products, claim)
	if err != nil {
		return nil, err
	}

	for _, d := range plan {
		if _, err := s.lineItemRepo.DecrementRemainingTx(ctx, tx, d.lineItemID, d.amount); err != nil {
			return nil, err
		}
	}

	// A differing claim supersedes the old code: retire it before minting so
	// two active codes never entitle overlapping quantities.
	if existing != nil {
		if err := s.codeRepo.InvalidateTx(ctx, tx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to invalidate prior code: %w", err)
		}
		logger.Info("invalidated prior code", slog.Int64("codeID", existing.ID))
	}

	code, err := s.mintCode(ctx, tx, userID, barID, plan[0].orderID, claim)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return code, nil
}

// mintCode inserts a freshly generated code, retrying on collision.
func (s *redemptionService) mintCode(ctx context.Context, tx *sql.Tx, userID, barID, orderID int64, claim map[string]int) (*models.PickupCode, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		value, err := generatePickupCode()
		if err != nil {
			return nil, err
		}
		code := &models.PickupCode{
			Code:      value,
			OrderID:   orderID,
			UserID:    userID,
			BarID:     barID,
			Claim:     claim,
			CreatedAt: time.Now(),
		}
		id, err := s.codeRepo.InsertCodeTx(ctx, tx, code)
		if errors.Is(err, storage.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert pickup code: %w", err)
		}
		code.ID = id
		return code, nil
	}
	return nil, fmt.Errorf("failed to mint a unique pickup code after %d attempts", maxCodeAttempts)
}

// decrement is one step of a draw-down plan.
type decrement struct {
	lineItemID int64
	orderID    int64
	amount     int
}

// planDrawdown distributes each requested quantity across the product's
// contributing line items in ascending id order, taking
// min(remaining, still needed) from each. The resulting decrements sum to
// exactly the requested quantities.
func planDrawdown(products []*models.AggregatedProduct, claim map[string]int) ([]decrement, error) {
	byName := make(map[string]*models.AggregatedProduct, len(products))
	for _, p := range products {
		byName[p.ProductName] = p
	}

	names := make([]string, 0, len(claim))
	for name := range claim {
		names = append(names, name)
	}
	sort.Strings(names)

	var plan []decrement
	for _, name := range names {
		needed := claim[name]
		group, ok := byName[name]
		if !ok || group.Total < needed {
			return nil, ErrInsufficientAvailability
		}
		for _, item := range group.Items {
			if needed == 0 {
				break
			}
			take := item.Remaining
			if take > needed {
				take = needed
			}
			plan = append(plan, decrement{lineItemID: item.ID, orderID: item.OrderID, amount: take})
			needed -= take
		}
	}
	return plan, nil
}

// normalizeClaim validates the boundary shape of a requested claim: every
// quantity non-negative, zero entries dropped, at least one positive quantity.
func normalizeClaim(requested map[string]int) (map[string]int, error) {
	claim := make(map[string]int, len(requested))
	for name, qty := range requested {
		if qty < 0 {
			return nil, ErrInvalidQuantity
		}
		if qty == 0 {
			continue
		}
		claim[name] = qty
	}
	if len(claim) == 0 {
		return nil, ErrEmptyClaim
	}
	return claim, nil
}
