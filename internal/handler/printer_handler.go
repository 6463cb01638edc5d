package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"tchatsouvenir/bookshop/internal/model"
	"tchatsouvenir/bookshop/internal/service"
)

type NotifyPrinterRequest struct {
	OrderID      string `json:"order_id"`
	PrinterEmail string `json:"printer_email"`
}

type TotalCostResponse struct {
	PrinterID string          `json:"printer_id"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

func (h *Handler) ListPrinters(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if s := r.URL.Query().Get("active_only"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			badRequest(w, "active_only must be a boolean")
			return
		}
		activeOnly = b
	}
	list, err := h.svc.Printers.List(r.Context(), activeOnly)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetPrinter(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Printers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) CreatePrinter(w http.ResponseWriter, r *http.Request) {
	var req model.Printer
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.Printers.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdatePrinter(w http.ResponseWriter, r *http.Request) {
	var req service.PrinterUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.Printers.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeletePrinter(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Printers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PrinterOrders(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryPeriod(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	orders, err := h.svc.Printers.Orders(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) PrinterTotalCost(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryPeriod(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	total, err := h.svc.Printers.TotalCost(r.Context(), id, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TotalCostResponse{PrinterID: id, TotalCost: total})
}

// NotifyPrinter resends an order to the printer by hand.
func (h *Handler) NotifyPrinter(w http.ResponseWriter, r *http.Request) {
	var req NotifyPrinterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OrderID == "" {
		badRequest(w, "order_id is required")
		return
	}
	n, err := h.svc.Notifications.NotifyPrinter(r.Context(), req.OrderID, req.PrinterEmail)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}
