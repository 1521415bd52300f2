package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pedebar/pedebar/internal/service"
	"github.com/pedebar/pedebar/internal/storage"
)

// PaymentWebhookRequest is the gateway's confirmation payload. Signature
// verification happens upstream; by the time it reaches here the event is
// trusted.
type PaymentWebhookRequest struct {
	OrderRef string `json:"order_ref" validate:"required,uuid"`
}

// PaymentWebhookHandler handles POST /api/webhook/payment.
func PaymentWebhookHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PaymentWebhookHandler"
		logger := log.With(slog.String("op", op))

		var req PaymentWebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		if err := paymentService.ConfirmPayment(r.Context(), req.OrderRef); err != nil {
			switch {
			case errors.Is(err, storage.ErrOrderNotFound):
				logger.Warn("payment for unknown order", slog.String("orderRef", req.OrderRef))
				http.Error(w, "order not found", http.StatusNotFound)
			case errors.Is(err, service.ErrOrderCancelled):
				logger.Warn("payment for cancelled order", slog.String("orderRef", req.OrderRef))
				http.Error(w, "order has been cancelled", http.StatusConflict)
			default:
				logger.Error("failed to confirm payment", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
