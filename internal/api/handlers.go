package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// Analytics is the portfolio analytics engine surface the API exposes
type Analytics interface {
	DailyValue(targetCurrency string) ([]models.DailyValue, error)
	XIRR(symbol string) (*float64, error)
	CurrentHoldings(targetCurrency string) ([]models.HoldingSnapshot, error)
}

// Ledger provides read access to the trade ledger
type Ledger interface {
	ListTrades() ([]*models.Trade, error)
	ListTradesBySymbol(symbol string) ([]*models.Trade, error)
}

// EnrichmentRunner triggers a market data enrichment pass
type EnrichmentRunner interface {
	Run(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	analytics Analytics
	ledger    Ledger
	enricher  EnrichmentRunner
}

// NewHandler creates a new Handler
func NewHandler(analytics Analytics, ledger Ledger, enricher EnrichmentRunner) *Handler {
	return &Handler{
		analytics: analytics,
		ledger:    ledger,
		enricher:  enricher,
	}
}

// GetDailyValue handles GET /portfolio/daily-value
func (h *Handler) GetDailyValue(w http.ResponseWriter, r *http.Request) {
	currency := strings.ToUpper(r.URL.Query().Get("currency"))
	if currency == "" {
		currency = models.CurrencyUSD
	}

	values, err := h.analytics.DailyValue(currency)
	if err != nil {
		slog.Error("daily value computation failed", slog.String("err", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type entry struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	}
	out := make([]entry, len(values))
	for i, v := range values {
		out[i] = entry{Date: v.Date.Format("2006-01-02"), Value: v.Value.String()}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"currency": currency,
		"series":   out,
	})
}

// GetHoldings handles GET /portfolio/holdings
func (h *Handler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	currency := strings.ToUpper(r.URL.Query().Get("currency"))

	holdings, err := h.analytics.CurrentHoldings(currency)
	if err != nil {
		slog.Error("holdings computation failed", slog.String("err", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, holdings)
}

// GetXIRR handles GET /holdings/{symbol}/xirr
func (h *Handler) GetXIRR(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	symbol := vars["symbol"]

	xirr, err := h.analytics.XIRR(symbol)
	if err != nil {
		slog.Error("xirr computation failed",
			slog.String("symbol", symbol), slog.String("err", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":       symbol,
		"xirr_percent": xirr,
	})
}

// GetTrades handles GET /trades
func (h *Handler) GetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	var trades []*models.Trade
	var err error
	if symbol != "" {
		trades, err = h.ledger.ListTradesBySymbol(symbol)
	} else {
		trades, err = h.ledger.ListTrades()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if trades == nil {
		trades = []*models.Trade{}
	}
	respondJSON(w, http.StatusOK, trades)
}

// RunEnrichment handles POST /enrichment. The pass is idempotent and safe
// to trigger repeatedly; concurrent triggers are serialized by the lock.
func (h *Handler) RunEnrichment(w http.ResponseWriter, r *http.Request) {
	if err := h.enricher.Run(r.Context()); err != nil {
		slog.Error("enrichment pass failed", slog.String("err", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
