package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router exposing every endpoint in the REST
// surface, bound to h.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/oracle/process", h.ProcessOracle)
		r.Post("/predicted-flights/auto-sync", h.SyncPredictedFlights)
		r.Post("/trajectory-densification/auto-sync", h.DensifyTrajectories)
		r.Post("/punctuality/kpis", h.RunPunctualityKPIs)
		r.Post("/trajectory-accuracy/run", h.RunTrajectoryAccuracy)

		r.Get("/flight-search/by-{kind}", h.SearchFlights)
		r.Get("/flight-search/details/{planId}", h.FlightDetails)
		r.Delete("/flight-search/real/{planId}", h.DeleteRealFlight)
		r.Delete("/flight-search/predicted/{instanceId}", h.DeletePredictedFlight)
		r.Post("/flight-search/bulk-delete", h.BulkDelete)
		r.Get("/flight-search/stats", h.FlightSearchStats)

		r.Get("/processing-history", h.ProcessingHistory)
		r.Get("/health", h.Health)
	})

	return r
}
