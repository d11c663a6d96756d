package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/portfolio/daily-value", handler.GetDailyValue).Methods("GET")
	api.HandleFunc("/portfolio/holdings", handler.GetHoldings).Methods("GET")
	api.HandleFunc("/holdings/{symbol}/xirr", handler.GetXIRR).Methods("GET")
	api.HandleFunc("/trades", handler.GetTrades).Methods("GET")
	api.HandleFunc("/enrichment", handler.RunEnrichment).Methods("POST")

	return r
}
