package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pedebar/pedebar/internal/auth/authmw"
	"github.com/pedebar/pedebar/internal/service"
)

// CheckoutItemRequest is one product line of a checkout.
type CheckoutItemRequest struct {
	ProductID      string `json:"product_id" validate:"required"`
	ProductName    string `json:"product_name" validate:"required"`
	UnitPriceCents int    `json:"unit_price_cents" validate:"gte=0"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
}

// CheckoutRequest is the POST /api/orders payload.
type CheckoutRequest struct {
	BarID int64                 `json:"bar_id" validate:"required,gt=0"`
	Items []CheckoutItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CheckoutResponse returns the created order's public reference; the gateway
// uses it to correlate the payment confirmation.
type CheckoutResponse struct {
	OrderRef   string `json:"order_ref"`
	TotalCents int    `json:"total_cents"`
	Status     string `json:"status"`
}

// CheckoutHandler handles POST /api/orders.
func CheckoutHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		var req CheckoutRequest
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

		items := make([]service.CheckoutItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, service.CheckoutItem{
				ProductID:      item.ProductID,
				ProductName:    item.ProductName,
				UnitPriceCents: item.UnitPriceCents,
				Quantity:       item.Quantity,
			})
		}

		order, err := checkoutService.Checkout(r.Context(), userID, req.BarID, items)
		if err != nil {
			logger.Error("checkout failed", slog.Any("error", err))
			http.Error(w, "failed to create order", http.StatusBadRequest)
			return
		}

		resp := CheckoutResponse{
			OrderRef:   order.ExternalID,
			TotalCents: order.TotalCents,
			Status:     string(order.Status),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}
}
