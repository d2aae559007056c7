package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/middleware"
)

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var body checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.checkout.Checkout(ctx, checkout.Request{
		UserID:        middleware.GetUserID(ctx),
		Details:       checkout.Details{PhoneNumber: body.PhoneNumber, CustomerName: body.CustomerName},
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err != nil {
		var verr *checkout.ValidationError
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			writeError(w, http.StatusBadRequest, "cart empty")
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": verr.Fields,
			})
		default:
			h.internalError(w, r, "checkout failed", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:          res.OrderID,
		TotalAmount:      res.TotalAmount.StringFixed(2),
		NotificationSent: res.NotificationSent,
	})
}
