package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade side constants
const (
	TradeSideBuy  = "BUY"
	TradeSideSell = "SELL"
)

// Trade represents a single executed trade from a broker activity statement.
// Quantity is signed: positive for buys, negative for sells. Proceeds is the
// signed cash amount of the execution: negative for purchases, positive for
// sales. Once SplitAdjusted is true the quantity and price must never be
// rescaled again.
type Trade struct {
	ID            int             `json:"id"`
	AssetCategory string          `json:"asset_category,omitempty"`
	Currency      string          `json:"currency"`
	Symbol        string          `json:"symbol"`
	ExecutedAt    time.Time       `json:"executed_at"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	ClosePrice    decimal.Decimal `json:"close_price,omitempty"`
	Proceeds      decimal.Decimal `json:"proceeds"`
	Commission    decimal.Decimal `json:"commission,omitempty"`
	Basis         decimal.Decimal `json:"basis,omitempty"`
	RealizedPnl   decimal.Decimal `json:"realized_pnl,omitempty"`
	MtmPnl        decimal.Decimal `json:"mtm_pnl,omitempty"`
	Code          string          `json:"code,omitempty"`
	SplitAdjusted bool            `json:"split_adjusted"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Side reports BUY or SELL based on the sign of the quantity.
func (t *Trade) Side() string {
	if t.Quantity.IsNegative() {
		return TradeSideSell
	}
	return TradeSideBuy
}

// TradeDate returns the execution timestamp truncated to a UTC calendar date.
func (t *Trade) TradeDate() time.Time {
	y, m, d := t.ExecutedAt.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Trade event type constants
const (
	EventTradeExecuted  = "TRADE_EXECUTED"
	EventTradesAdjusted = "TRADES_ADJUSTED"
	EventEnrichmentDone = "ENRICHMENT_COMPLETED"
)

// TradeEvent represents a Kafka event carrying an executed trade
type TradeEvent struct {
	EventType string    `json:"event_type"`
	Source    string    `json:"source,omitempty"`
	Trade     *Trade    `json:"trade,omitempty"`
	Symbol    string    `json:"symbol,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
