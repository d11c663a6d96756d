package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitEvent represents a stock split: Ratio is new-shares-per-old-share,
// e.g. 2 for a 2:1 split. Split events are immutable once stored; the
// adjustment engine only reads them, in ascending EffectiveDate order.
type SplitEvent struct {
	ID            int             `json:"id"`
	Symbol        string          `json:"symbol"`
	EffectiveDate time.Time       `json:"effective_date"`
	Ratio         decimal.Decimal `json:"ratio"`
	CreatedAt     time.Time       `json:"created_at"`
}
