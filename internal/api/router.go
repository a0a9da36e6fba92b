package api

import (
	"net/http"

	"orderflow/internal/api/middleware"

	"github.com/go-chi/chi/v5"
	ChiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func NewRouter(h *Handlers, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	r.Use(ChiMiddleware.Logger)
	r.Use(ChiMiddleware.Recoverer)
	r.Use(ChiMiddleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/invoices", h.ListInvoices)
		r.Get("/invoices/stats", h.GetStats)
		r.Get("/invoices/{id}", h.GetInvoice)
		r.Get("/orders/{orderID}/invoice", h.GetInvoiceByOrder)
		r.Get("/orders/{orderID}/notifications", h.ListNotifications)

		// Explicit status transitions (mark pending/paid, cancel),
		// guarded by an idempotency key
		r.With(middleware.Idempotency(redisClient)).Post("/invoices/{id}/status", h.TransitionStatus)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
