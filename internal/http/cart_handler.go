package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/middleware"
)

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.carts.GetOrCreate(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.internalError(w, r, "failed to load cart", err)
		return
	}
	h.writeSnapshot(ctx, w, r, http.StatusOK, c.ID)
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.carts.GetOrCreate(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.internalError(w, r, "failed to load cart", err)
		return
	}

	if err := h.carts.AddItem(ctx, c.ID, body.ProductID, *body.Quantity); err != nil {
		switch {
		case errors.Is(err, cart.ErrProductNotFound):
			writeError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, cart.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.internalError(w, r, "failed to add item", err)
		}
		return
	}
	h.writeSnapshot(ctx, w, r, http.StatusOK, c.ID)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.carts.GetOrCreate(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.internalError(w, r, "failed to load cart", err)
		return
	}

	res, err := h.carts.RemoveItem(ctx, c.ID, body.ProductID, *body.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrItemNotFound):
			writeError(w, http.StatusNotFound, "item not in cart")
		case errors.Is(err, cart.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.internalError(w, r, "failed to remove item", err)
		}
		return
	}

	snap, err := h.carts.Snapshot(ctx, c.ID)
	if err != nil {
		h.internalError(w, r, "failed to load cart", err)
		return
	}
	writeJSON(w, http.StatusOK, removeResponse{
		Outcome:   string(res.Outcome),
		Remaining: res.Remaining,
		Cart:      toCartResponse(snap),
	})
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.carts.GetOrCreate(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.internalError(w, r, "failed to load cart", err)
		return
	}
	if err := h.carts.Clear(ctx, c.ID); err != nil {
		h.internalError(w, r, "failed to clear cart", err)
		return
	}
	h.writeSnapshot(ctx, w, r, http.StatusOK, c.ID)
}

func (h *Handler) writeSnapshot(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, cartID string) {
	snap, err := h.carts.Snapshot(ctx, cartID)
	if err != nil {
		h.internalError(w, r, "failed to load cart", err)
		return
	}
	writeJSON(w, status, toCartResponse(snap))
}

func decodeItemRequest(w http.ResponseWriter, r *http.Request) (cartItemRequest, bool) {
	var body cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return body, false
	}
	if body.ProductID <= 0 {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return body, false
	}
	if body.Quantity == nil {
		one := 1
		body.Quantity = &one
	}
	if *body.Quantity < 1 || *body.Quantity > cart.MaxQuantity {
		writeError(w, http.StatusBadRequest, cart.ErrInvalidQuantity.Error())
		return body, false
	}
	return body, true
}
