package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pedebar/pedebar/internal/auth/authmw"
	"github.com/pedebar/pedebar/internal/qrpayload"
	"github.com/pedebar/pedebar/internal/service"
)

// RedeemRequest asks to reserve quantities for pickup. Items maps product
// name to the requested quantity.
type RedeemRequest struct {
	BarID int64          `json:"bar_id" validate:"required,gt=0"`
	Items map[string]int `json:"items" validate:"required,min=1"`
}

// RedeemResponse returns the freshly issued (or idempotently re-returned)
// pickup code, plus the payload string the client renders as a QR code.
type RedeemResponse struct {
	Code      string         `json:"code"`
	Claim     map[string]int `json:"claim"`
	OrderRef  string         `json:"order_ref"`
	QRPayload string         `json:"qr_payload"`
	IssuedAt  time.Time      `json:"issued_at"`
}

// RedeemHandler handles POST /api/redeem.
func RedeemHandler(log *slog.Logger, redemptionService service.RedemptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RedeemHandler"
		logger := log.With(slog.String("op", op))

		var req RedeemRequest
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

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		issued, err := redemptionService.RequestRedemption(r.Context(), userID, req.BarID, req.Items)
		if err != nil {
			// Distinct user-facing outcomes: nothing selected, more than
			// available, and system error must not collapse into one message.
			switch {
			case errors.Is(err, service.ErrEmptyClaim):
				logger.Warn("empty claim")
				http.Error(w, "nothing selected for pickup", http.StatusUnprocessableEntity)
			case errors.Is(err, service.ErrInvalidQuantity):
				logger.Warn("invalid quantity")
				http.Error(w, "quantities must be non-negative", http.StatusBadRequest)
			case errors.Is(err, service.ErrInsufficientAvailability):
				logger.Warn("insufficient availability")
				http.Error(w, "requested more than available", http.StatusUnprocessableEntity)
			default:
				logger.Error("redemption failed", slog.Any("error", err))
				http.Error(w, "system error, try again", http.StatusInternalServerError)
			}
			return
		}

		payload, err := qrpayload.Encode(issued.Code, issued.OrderRef, issued.Claim)
		if err != nil {
			logger.Error("failed to encode qr payload", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := RedeemResponse{
			Code:      issued.Code,
			Claim:     issued.Claim,
			OrderRef:  issued.OrderRef,
			QRPayload: payload,
			IssuedAt:  issued.CreatedAt,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}
}
