package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pedebar/pedebar/internal/domain/models"
)

var (
	ErrCodeNotFound = errors.New("pickup code not found")
	// ErrDuplicateCode means the generated code string collided with an
	// existing row; the caller should generate a fresh one and retry.
	ErrDuplicateCode   = errors.New("pickup code already exists")
	ErrCodeAlreadyUsed = errors.New("pickup code already used")
	ErrCodeInvalidated = errors.New("pickup code invalidated")
)

// CodeStorage is the pickup code registry. Used and invalidated are terminal
// flags: they are only ever set, never cleared, and only from the active state.
type CodeStorage interface {
	// InsertCodeTx inserts a new active code and returns its id.
	// ErrDuplicateCode signals a collision on the code column.
	InsertCodeTx(ctx context.Context, tx *sql.Tx, code *models.PickupCode) (int64, error)
	// GetByCode returns the row for a code string regardless of its flags;
	// callers branch on Used/Invalidated to produce distinct outcomes.
	GetByCode(ctx context.Context, code string) (*models.PickupCode, error)
	// LockByCodeTx is GetByCode with a FOR UPDATE lock, for the confirm path.
	LockByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*models.PickupCode, error)
	// GetActiveByScopeTx returns the single active code for a user/bar scope,
	// locked FOR UPDATE, or ErrCodeNotFound when none exists.
	GetActiveByScopeTx(ctx context.Context, tx *sql.Tx, userID, barID int64) (*models.PickupCode, error)
	// InvalidateTx marks a code superseded. Idempotent: a no-op if the code is
	// already used or invalidated.
	InvalidateTx(ctx context.Context, tx *sql.Tx, codeID int64) error
	// ConsumeTx marks a code used. Fails with ErrCodeAlreadyUsed or
	// ErrCodeInvalidated if the code is no longer active.
	ConsumeTx(ctx context.Context, tx *sql.Tx, codeID int64) error
}

type codeRepository struct {
	db *sql.DB
}

func NewCodeRepository(db *sql.DB) CodeStorage {
	return &codeRepository{db: db}
}

func (r *codeRepository) InsertCodeTx(ctx context.Context, tx *sql.Tx, code *models.PickupCode) (int64, error) {
	claim, err := json.Marshal(code.Claim)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal claim: %w", err)
	}
	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO pickup_codes (code, order_id, user_id, bar_id, claim, used, invalidated, created_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, NOW()) RETURNING id`,
		code.Code, code.OrderID, code.UserID, code.BarID, claim,
	).Scan(&id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" && pqErr.Constraint == "pickup_codes_code_key" {
				return 0, ErrDuplicateCode
			}
		}
		return 0, err
	}
	return id, nil
}

const codeColumns = "id, code, order_id, user_id, bar_id, claim, used, invalidated, created_at"

func (r *codeRepository) GetByCode(ctx context.Context, code string) (*models.PickupCode, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+codeColumns+" FROM pickup_codes WHERE code = $1", code)
	return scanCode(row)
}

func (r *codeRepository) LockByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*models.PickupCode, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+codeColumns+" FROM pickup_codes WHERE code = $1 FOR UPDATE", code)
	return scanCode(row)
}

func (r *codeRepository) GetActiveByScopeTx(ctx context.Context, tx *sql.Tx, userID, barID int64) (*models.PickupCode, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+codeColumns+` FROM pickup_codes
		 WHERE user_id = $1 AND bar_id = $2 AND NOT used AND NOT invalidated
		 FOR UPDATE`, userID, barID)
	return scanCode(row)
}

func (r *codeRepository) InvalidateTx(ctx context.Context, tx *sql.Tx, codeID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE pickup_codes SET invalidated = TRUE
		 WHERE id = $1 AND NOT used AND NOT invalidated`, codeID)
	return err
}

func (r *codeRepository) ConsumeTx(ctx context.Context, tx *sql.Tx, codeID int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE pickup_codes SET used = TRUE
		 WHERE id = $1 AND NOT used AND NOT invalidated`, codeID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// No row flipped: find out which terminal state blocked the consume.
	var used, invalidated bool
	row := tx.QueryRowContext(ctx, "SELECT used, invalidated FROM pickup_codes WHERE id = $1", codeID)
	if err := row.Scan(&used, &invalidated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCodeNotFound
		}
		return err
	}
	if used {
		return ErrCodeAlreadyUsed
	}
	if invalidated {
		return ErrCodeInvalidated
	}
	return fmt.Errorf("consume affected no rows for active code %d", codeID)
}

func scanCode(row *sql.Row) (*models.PickupCode, error) {
	code := &models.PickupCode{}
	var claim []byte
	if err := row.Scan(&code.ID, &code.Code, &code.OrderID, &code.UserID, &code.BarID,
		&claim, &code.Used, &code.Invalidated, &code.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(claim, &code.Claim); err != nil {
		return nil, fmt.Errorf("failed to unmarshal claim: %w", err)
	}
	return code, nil
}
