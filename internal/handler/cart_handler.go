package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tchatsouvenir/bookshop/internal/service"
)

type UpdateCartRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Cart.Items(r.Context(), caller(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) CartSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Cart.Summary(r.Context(), caller(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req service.AddToCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	item, err := h.svc.Cart.Add(r.Context(), caller(r).UserID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.Cart.Update(r.Context(), caller(r).UserID, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cart.Remove(r.Context(), caller(r).UserID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cart.Clear(r.Context(), caller(r).UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
