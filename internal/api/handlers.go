package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"orderflow/internal/domain/invoice"
	"orderflow/internal/usecase"

	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	getInvoiceUC        *usecase.GetInvoice
	listInvoicesUC      *usecase.ListInvoices
	statsUC             *usecase.GetInvoiceStats
	transitionUC        *usecase.TransitionStatus
	listNotificationsUC *usecase.ListNotifications
}

func NewHandlers(
	getInvoiceUC *usecase.GetInvoice,
	listInvoicesUC *usecase.ListInvoices,
	statsUC *usecase.GetInvoiceStats,
	transitionUC *usecase.TransitionStatus,
	listNotificationsUC *usecase.ListNotifications,
) *Handlers {
	return &Handlers{
		getInvoiceUC:        getInvoiceUC,
		listInvoicesUC:      listInvoicesUC,
		statsUC:             statsUC,
		transitionUC:        transitionUC,
		listNotificationsUC: listNotificationsUC,
	}
}

func (h *Handlers) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing invoice id", http.StatusBadRequest)
		return
	}

	inv, err := h.getInvoiceUC.Execute(r.Context(), id)
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "invoice not found"})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, inv)
}

func (h *Handlers) GetInvoiceByOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		http.Error(w, "missing order id", http.StatusBadRequest)
		return
	}

	inv, err := h.getInvoiceUC.ExecuteByOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "invoice not found"})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, inv)
}

func (h *Handlers) ListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := usecase.ListInvoicesParams{
		Status: q.Get("status"),
		Page:   atoiDefault(q.Get("page"), 1),
		Size:   atoiDefault(q.Get("size"), 50),
	}

	var err error
	if v := q.Get("from"); v != "" {
		if params.From, err = time.Parse(time.RFC3339, v); err != nil {
			http.Error(w, "invalid from date, want RFC3339", http.StatusBadRequest)
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if params.To, err = time.Parse(time.RFC3339, v); err != nil {
			http.Error(w, "invalid to date, want RFC3339", http.StatusBadRequest)
			return
		}
	}

	invoices, err := h.listInvoicesUC.Execute(r.Context(), params)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidFilter) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"invoices": invoices,
		"page":     params.Page,
		"count":    len(invoices),
	})
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsUC.Execute(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing invoice id", http.StatusBadRequest)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.transitionUC.Execute(r.Context(), id, invoice.Status(req.Status))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": req.Status})
	case errors.Is(err, invoice.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "invoice not found"})
	case errors.Is(err, invoice.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		http.Error(w, "missing order id", http.StatusBadRequest)
		return
	}

	notifications, err := h.listNotificationsUC.Execute(r.Context(), orderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
