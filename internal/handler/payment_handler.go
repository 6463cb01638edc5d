package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tchatsouvenir/bookshop/internal/service"
	"tchatsouvenir/bookshop/internal/service/gateway"
)

func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req service.InitiatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Payments.Initiate(r.Context(), caller(r).UserID, req)
	if err != nil {
		var apiErr *gateway.ErrorResponse
		if errors.As(err, &apiErr) {
			writeJSON(w, http.StatusBadGateway, apiErr)
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Payments.Status(r.Context(), chi.URLParam(r, "txID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PaymentCallback receives the provider webhook.
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req service.CallbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TransactionID == "" || req.Status == "" {
		badRequest(w, "transaction_id and status are required")
		return
	}
	p, err := h.svc.Payments.Callback(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Payments.History(r.Context(), caller(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
