package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pedebar/pedebar/internal/domain/models"
	"github.com/pedebar/pedebar/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verificationFixture struct {
	db     *sql.DB
	mock   sqlmock.Sqlmock
	codes  *fakeCodeRepo
	orders *fakeOrderRepo
	svc    service.VerificationService
}

func newVerificationFixture(t *testing.T) *verificationFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &verificationFixture{
		db:     db,
		mock:   mock,
		codes:  newFakeCodeRepo(),
		orders: newFakeOrderRepo(),
	}
	f.svc = service.NewVerificationService(testLogger(), db, f.codes, f.orders)
	return f
}

func (f *verificationFixture) seedCode(t *testing.T, code *models.PickupCode) *models.PickupCode {
	t.Helper()
	f.orders.add(&models.Order{ID: code.OrderID, ExternalID: "ref-1", UserID: code.UserID, BarID: code.BarID, Status: models.OrderStatusPaid})
	id, err := f.codes.InsertCodeTx(context.Background(), nil, code)
	require.NoError(t, err)
	return f.codes.codes[id]
}

func TestVerify_ActiveCode(t *testing.T) {
	f := newVerificationFixture(t)
	f.seedCode(t, &models.PickupCode{
		Code:      "123456",
		OrderID:   1,
		UserID:    10,
		BarID:     7,
		Claim:     map[string]int{"Brahma": 2},
		CreatedAt: time.Now(),
	})

	result, err := f.svc.Verify(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, "123456", result.Code)
	assert.Equal(t, "ref-1", result.OrderRef)
	assert.Equal(t, map[string]int{"Brahma": 2}, result.Claim)

	// Verify is read-only: the code stays active.
	assert.Len(t, f.codes.active(), 1)
}

func TestVerify_NotFound(t *testing.T) {
	f := newVerificationFixture(t)

	_, err := f.svc.Verify(context.Background(), "000000")
	assert.ErrorIs(t, err, service.ErrCodeNotFound)
}

func TestVerify_UsedCode(t *testing.T) {
	f := newVerificationFixture(t)
	f.seedCode(t, &models.PickupCode{Code: "123456", OrderID: 1, UserID: 10, BarID: 7, Used: true})

	// A consumed code is reported as redeemed, never as unknown.
	_, err := f.svc.Verify(context.Background(), "123456")
	assert.ErrorIs(t, err, service.ErrAlreadyRedeemed)
}

func TestVerify_SupersededCode(t *testing.T) {
	f := newVerificationFixture(t)
	f.seedCode(t, &models.PickupCode{Code: "123456", OrderID: 1, UserID: 10, BarID: 7, Invalidated: true})

	_, err := f.svc.Verify(context.Background(), "123456")
	assert.ErrorIs(t, err, service.ErrCodeSuperseded)
}

func TestConfirm_ConsumesCode(t *testing.T) {
	f := newVerificationFixture(t)
	seeded := f.seedCode(t, &models.PickupCode{
		Code:    "123456",
		OrderID: 1,
		UserID:  10,
		BarID:   7,
		Claim:   map[string]int{"Brahma": 2},
	})

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	result, err := f.svc.Confirm(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, "ref-1", result.OrderRef)
	assert.True(t, seeded.Used)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestConfirm_SecondConfirmRejected(t *testing.T) {
	f := newVerificationFixture(t)
	f.seedCode(t, &models.PickupCode{Code: "123456", OrderID: 1, UserID: 10, BarID: 7, Claim: map[string]int{"Brahma": 2}})

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err := f.svc.Confirm(context.Background(), "123456")
	require.NoError(t, err)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Confirm(context.Background(), "123456")
	assert.ErrorIs(t, err, service.ErrAlreadyRedeemed)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestConfirm_NotFound(t *testing.T) {
	f := newVerificationFixture(t)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Confirm(context.Background(), "000000")
	assert.ErrorIs(t, err, service.ErrCodeNotFound)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestConfirm_SupersededCode(t *testing.T) {
	f := newVerificationFixture(t)
	f.seedCode(t, &models.PickupCode{Code: "123456", OrderID: 1, UserID: 10, BarID: 7, Invalidated: true})

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.Confirm(context.Background(), "123456")
	assert.ErrorIs(t, err, service.ErrCodeSuperseded)
	require.NoError(t, f.mock.ExpectationsWereMet())
}
