package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pedebar/pedebar/internal/domain/models"
	"github.com/pedebar/pedebar/internal/service"
	"github.com/pedebar/pedebar/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmPayment_MarksPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orders := newFakeOrderRepo()
	orders.add(&models.Order{ID: 1, ExternalID: "ref-1", Status: models.OrderStatusAwaitingPayment})
	svc := service.NewPaymentService(testLogger(), db, orders)

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, svc.ConfirmPayment(context.Background(), "ref-1"))

	assert.Equal(t, models.OrderStatusPaid, orders.orders[1].Status)
	assert.NotNil(t, orders.orders[1].PaidAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPayment_DuplicateDelivery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	paidAt := time.Now().Add(-time.Minute)
	orders := newFakeOrderRepo()
	orders.add(&models.Order{ID: 1, ExternalID: "ref-1", Status: models.OrderStatusPaid, PaidAt: &paidAt})
	svc := service.NewPaymentService(testLogger(), db, orders)

	// Gateways redeliver; a second confirmation is a silent no-op.
	mock.ExpectBegin()
	mock.ExpectRollback()
	require.NoError(t, svc.ConfirmPayment(context.Background(), "ref-1"))

	assert.Equal(t, paidAt, *orders.orders[1].PaidAt, "original payment time untouched")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPayment_CancelledOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orders := newFakeOrderRepo()
	orders.add(&models.Order{ID: 1, ExternalID: "ref-1", Status: models.OrderStatusCancelled})
	svc := service.NewPaymentService(testLogger(), db, orders)

	mock.ExpectBegin()
	mock.ExpectRollback()
	err = svc.ConfirmPayment(context.Background(), "ref-1")
	assert.ErrorIs(t, err, service.ErrOrderCancelled)

	assert.Equal(t, models.OrderStatusCancelled, orders.orders[1].Status, "cancelled orders stay cancelled")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPayment_UnknownOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := service.NewPaymentService(testLogger(), db, newFakeOrderRepo())

	mock.ExpectBegin()
	mock.ExpectRollback()
	err = svc.ConfirmPayment(context.Background(), "ref-missing")
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
