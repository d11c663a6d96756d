package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldingSnapshot represents the current state of one held symbol. It is
// derived on every request and never persisted. XirrPct is nil when the
// money-weighted return is undefined for the symbol's cash-flow schedule.
type HoldingSnapshot struct {
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	Currency    string          `json:"currency"`
	MarketValue decimal.Decimal `json:"market_value"`
	XirrPct     *float64        `json:"xirr_percent"`
}

// DailyValue is one point of the reconstructed portfolio value series.
type DailyValue struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}
