package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tchatsouvenir/bookshop/internal/model"
	"tchatsouvenir/bookshop/internal/service"
)

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	o, err := h.svc.Orders.Create(r.Context(), caller(r).UserID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	o, err := h.svc.Orders.CreateFromCart(r.Context(), caller(r).UserID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListForUser(r.Context(), caller(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.Get(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) OrderByReference(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.GetByReference(r.Context(), caller(r), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.OrderFilter{
		Search:        q.Get("search"),
		BookFormat:    q.Get("book_format"),
		PaymentMethod: q.Get("payment_method"),
	}
	if s := q.Get("status"); s != "" {
		st, ok := model.ParseOrderStatus(s)
		if !ok {
			badRequest(w, "unknown order status")
			return
		}
		f.Status = st
	}
	var err error
	if f.DateFrom, err = parseTime(q.Get("date_from"), false); err != nil {
		h.writeError(w, r, err)
		return
	}
	if f.DateTo, err = parseTime(q.Get("date_to"), true); err != nil {
		h.writeError(w, r, err)
		return
	}

	orders, err := h.svc.Orders.List(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) OrderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Orders.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req service.OrderUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	o, err := h.svc.Orders.Update(r.Context(), caller(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, ok := model.ParseOrderStatus(req.Status)
	if !ok {
		badRequest(w, "unknown order status")
		return
	}
	o, err := h.svc.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), st)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
