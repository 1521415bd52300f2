package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pedebar/pedebar/internal/auth/authmw"
	"github.com/pedebar/pedebar/internal/domain/models"
	"github.com/pedebar/pedebar/internal/service"
	"github.com/pedebar/pedebar/internal/storage"
)

// SummaryItem is one "N available" row.
type SummaryItem struct {
	ProductName string `json:"product_name"`
	Available   int    `json:"available"`
}

// SummaryResponse lists what the user can still pick up.
type SummaryResponse struct {
	Products []SummaryItem `json:"products"`
}

// RedeemableSummaryHandler handles GET /api/redeemable?bar_id=N.
func RedeemableSummaryHandler(log *slog.Logger, summaryService service.SummaryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RedeemableSummaryHandler"
		logger := log.With(slog.String("op", op))

		barID, err := strconv.ParseInt(r.URL.Query().Get("bar_id"), 10, 64)
		if err != nil || barID <= 0 {
			logger.Error("invalid bar_id parameter")
			http.Error(w, "bar_id parameter is required", http.StatusBadRequest)
			return
		}

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		products, err := summaryService.RedeemableSummary(r.Context(), userID, barID)
		if err != nil {
			logger.Error("failed to get summary", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeSummary(w, logger, products)
	}
}

// OrderSummaryHandler handles GET /api/orders/{orderRef}/redeemable.
func OrderSummaryHandler(log *slog.Logger, summaryService service.SummaryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderSummaryHandler"
		logger := log.With(slog.String("op", op))

		orderRef := chi.URLParam(r, "orderRef")
		if orderRef == "" {
			logger.Error("orderRef parameter is missing")
			http.Error(w, "orderRef parameter is required", http.StatusBadRequest)
			return
		}

		userID, ok := authmw.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		products, err := summaryService.OrderSummary(r.Context(), userID, orderRef)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				logger.Warn("order not found", slog.String("orderRef", orderRef))
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get order summary", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeSummary(w, logger, products)
	}
}

func writeSummary(w http.ResponseWriter, logger *slog.Logger, products []*models.AggregatedProduct) {
	resp := SummaryResponse{Products: make([]SummaryItem, 0, len(products))}
	for _, p := range products {
		resp.Products = append(resp.Products, SummaryItem{ProductName: p.ProductName, Available: p.Total})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
