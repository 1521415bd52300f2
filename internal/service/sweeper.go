package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pedebar/pedebar/internal/metrics"
	"github.com/pedebar/pedebar/internal/storage"
)

// Sweeper cancels orders stuck in awaiting_payment past the payment timeout.
// It polls; the status-guarded UPDATE it issues cannot touch an order that has
// since been paid, so the cadence is advisory housekeeping, not correctness.
type Sweeper struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
	ttl       time.Duration
	interval  time.Duration
}

func NewSweeper(log *slog.Logger, orderRepo storage.OrderStorage, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{
		log:       log,
		orderRepo: orderRepo,
		ttl:       ttl,
		interval:  interval,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("order sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	const op = "service.Sweeper.sweep"

	cancelled, err := s.orderRepo.CancelExpired(ctx, time.Now().Add(-s.ttl))
	if err != nil {
		s.log.Error("failed to cancel expired orders", slog.String("op", op), slog.Any("error", err))
		return
	}
	if cancelled > 0 {
		metrics.OrdersSwept.Add(float64(cancelled))
		s.log.Info("cancelled expired orders", slog.String("op", op), slog.Int64("count", cancelled))
	}
}
