package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pedebar/pedebar/internal/qrpayload"
	"github.com/pedebar/pedebar/internal/service"
)

// VerifyRequest carries the raw scanner output: either the QR payload JSON or
// a bare numeric code typed by hand.
type VerifyRequest struct {
	Payload string `json:"payload" validate:"required"`
}

// writeVerificationError maps the three distinct verification outcomes to
// their own status and message; they must never collapse into a generic
// "invalid code".
func writeVerificationError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrCodeNotFound):
		logger.Warn("code not found")
		http.Error(w, "code not found", http.StatusNotFound)
	case errors.Is(err, service.ErrAlreadyRedeemed):
		logger.Warn("code already redeemed")
		http.Error(w, "code already redeemed", http.StatusConflict)
	case errors.Is(err, service.ErrCodeSuperseded):
		logger.Warn("code superseded")
		http.Error(w, "this code is no longer valid; a newer code may exist", http.StatusConflict)
	default:
		logger.Error("verification failed", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func decodeVerifyRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("invalid request: decoding error", slog.Any("error", err))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return "", false
	}
	if err := validate.Struct(req); err != nil {
		logger.Error("invalid request: validation error", slog.Any("error", err))
		http.Error(w, "validation error", http.StatusBadRequest)
		return "", false
	}

	code, err := qrpayload.Decode(req.Payload)
	if err != nil {
		logger.Warn("unreadable payload")
		http.Error(w, "payload does not contain a pickup code", http.StatusBadRequest)
		return "", false
	}
	return code, true
}

// VerifyHandler handles POST /api/staff/verify: read-only preview of a code's
// claim before handover.
func VerifyHandler(log *slog.Logger, verificationService service.VerificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.VerifyHandler"
		logger := log.With(slog.String("op", op))

		code, ok := decodeVerifyRequest(w, r, logger)
		if !ok {
			return
		}

		result, err := verificationService.Verify(r.Context(), code)
		if err != nil {
			writeVerificationError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

// ConfirmHandler handles POST /api/staff/confirm: the terminal transition that
// finalizes a physical handover. Failures are not retried automatically; staff
// re-scan.
func ConfirmHandler(log *slog.Logger, verificationService service.VerificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ConfirmHandler"
		logger := log.With(slog.String("op", op))

		code, ok := decodeVerifyRequest(w, r, logger)
		if !ok {
			return
		}

		result, err := verificationService.Confirm(r.Context(), code)
		if err != nil {
			writeVerificationError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}
