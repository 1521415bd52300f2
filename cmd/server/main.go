package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pedebar/pedebar/internal/app"
	"github.com/pedebar/pedebar/internal/app/handlers"
	"github.com/pedebar/pedebar/internal/auth/authmw"
	"github.com/pedebar/pedebar/internal/config"
	"github.com/pedebar/pedebar/internal/lib/logger"
	"github.com/pedebar/pedebar/internal/lib/logger/handlers/urllog"
	"github.com/pedebar/pedebar/internal/service"
	"github.com/pedebar/pedebar/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	userRepo := storage.NewUserRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	lineItemRepo := storage.NewLineItemRepository(application.DB)
	codeRepo := storage.NewCodeRepository(application.DB)

	authService := service.NewAuthService(application.Logger, userRepo, time.Duration(application.Config.JWT.TokenTTL)*time.Minute)
	checkoutService := service.NewCheckoutService(application.Logger, application.DB, orderRepo, lineItemRepo)
	paymentService := service.NewPaymentService(application.Logger, application.DB, orderRepo)
	summaryService := service.NewSummaryService(application.Logger, orderRepo, lineItemRepo)
	redemptionService := service.NewRedemptionService(application.Logger, application.DB, lineItemRepo, codeRepo, orderRepo)
	verificationService := service.NewVerificationService(application.Logger, application.DB, codeRepo, orderRepo)

	router.Post("/api/auth", handlers.AuthHandler(application.Logger, authService))
	// Payment confirmations arrive over the gateway channel, not a user session.
	router.Post("/api/webhook/payment", handlers.PaymentWebhookHandler(application.Logger, paymentService))
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		jwtMW := authmw.NewJWTMiddleware()
		r.Use(jwtMW)

		r.Post("/api/orders", handlers.CheckoutHandler(application.Logger, checkoutService))
		r.Get("/api/redeemable", handlers.RedeemableSummaryHandler(application.Logger, summaryService))
		r.Get("/api/orders/{orderRef}/redeemable", handlers.OrderSummaryHandler(application.Logger, summaryService))
		r.Post("/api/redeem", handlers.RedeemHandler(application.Logger, redemptionService))

		r.Group(func(staff chi.Router) {
			staff.Use(authmw.RequireStaff)
			staff.Use(handlers.RateLimit(cfg.Redemption.VerifyRPS, cfg.Redemption.VerifyBurst))
			staff.Post("/api/staff/verify", handlers.VerifyHandler(application.Logger, verificationService))
			staff.Post("/api/staff/confirm", handlers.ConfirmHandler(application.Logger, verificationService))
		})
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweeper := service.NewSweeper(application.Logger, orderRepo, cfg.Redemption.OrderTTL, cfg.Redemption.SweepInterval)
	go sweeper.Run(sweepCtx)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
