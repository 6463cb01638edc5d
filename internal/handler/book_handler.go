package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tchatsouvenir/bookshop/internal/model"
	"tchatsouvenir/bookshop/internal/service"
)

type AssignPrinterRequest struct {
	OrderID *string `json:"order_id"`
}

type MarkDownloadedRequest struct {
	Path string `json:"download_path"`
}

func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f model.BookFilter
	if s := q.Get("status"); s != "" {
		st, ok := model.ParseBookStatus(s)
		if !ok {
			badRequest(w, "unknown book status")
			return
		}
		f.Status = st
	}
	if s := q.Get("format"); s != "" {
		bf, ok := model.ParseBookFormat(s)
		if !ok {
			badRequest(w, "unknown book format")
			return
		}
		f.Format = bf
	}
	var err error
	if f.From, f.To, err = queryPeriod(r); err != nil {
		h.writeError(w, r, err)
		return
	}

	books, err := h.svc.Books.List(r.Context(), caller(r), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.Books.Create(r.Context(), caller(r).UserID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Books.Get(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var req service.BookUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.Books.Update(r.Context(), caller(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Books.SoftDelete(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PermanentDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Books.PermanentDelete(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RestoreBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Books.Restore(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) DeletedBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.Books.Deleted(r.Context(), caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *Handler) AssignPrinter(w http.ResponseWriter, r *http.Request) {
	var req AssignPrinterRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if req.OrderID == nil {
		if id := r.URL.Query().Get("order_id"); id != "" {
			req.OrderID = &id
		}
	}
	po, err := h.svc.Books.AssignPrinter(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "printerID"), req.OrderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, po)
}

func (h *Handler) MarkDownloaded(w http.ResponseWriter, r *http.Request) {
	var req MarkDownloadedRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.Books.MarkDownloaded(r.Context(), caller(r), chi.URLParam(r, "id"), req.Path)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) MarginStats(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryPeriod(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats, err := h.svc.Books.MarginStats(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
