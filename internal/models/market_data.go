package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency constants. USD is the anchor: every stored FX pair has USD as
// its base, so non-USD conversions bridge through USD.
const (
	CurrencyUSD = "USD"
	CurrencySGD = "SGD"
	CurrencyINR = "INR"
)

// FX pair constants (base USD, quote appended)
const (
	PairUSDSGD = "USDSGD"
	PairUSDINR = "USDINR"
)

// PricePoint represents a daily close price for a symbol in its native currency
type PricePoint struct {
	ID        int             `json:"id"`
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Close     decimal.Decimal `json:"close"`
	CreatedAt time.Time       `json:"created_at"`
}

// FxRate represents a daily exchange rate: units of quote currency per one
// unit of the base currency. Pair is base+quote, e.g. "USDINR".
type FxRate struct {
	ID        int             `json:"id"`
	Pair      string          `json:"pair"`
	Date      time.Time       `json:"date"`
	Rate      decimal.Decimal `json:"rate"`
	CreatedAt time.Time       `json:"created_at"`
}
