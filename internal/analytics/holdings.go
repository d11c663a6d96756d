package analytics

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// CurrentHoldings builds a snapshot of every currently held symbol: net
// quantity from the full ledger, market value at the latest recorded price
// (no as-of cutoff), and the money-weighted return when defined.
//
// Symbols with a non-positive net quantity are dropped. A symbol with no
// price data gets a market value of zero rather than an absent field, so the
// output schema stays total. When targetCurrency is empty each market value
// is reported in the symbol's native currency; otherwise it is converted as
// of today, with the usual unconverted fallback when rates are missing.
func (e *Engine) CurrentHoldings(targetCurrency string) ([]models.HoldingSnapshot, error) {
	trades, err := e.store.ListTrades()
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	if len(trades) == 0 {
		return []models.HoldingSnapshot{}, nil
	}

	quantities := make(map[string]decimal.Decimal)
	nativeCurrency := make(map[string]string)
	for _, t := range trades {
		quantities[t.Symbol] = quantities[t.Symbol].Add(t.Quantity)
		if _, seen := nativeCurrency[t.Symbol]; !seen {
			nativeCurrency[t.Symbol] = t.Currency
		}
	}

	held := make([]string, 0, len(quantities))
	for symbol, quantity := range quantities {
		if quantity.IsPositive() {
			held = append(held, symbol)
		}
	}
	sort.Strings(held)

	var resolver *Resolver
	if targetCurrency != "" {
		resolver, err = NewResolver(e.store, nil, e.pairs)
		if err != nil {
			return nil, err
		}
	}

	snapshots := make([]models.HoldingSnapshot, 0, len(held))
	for _, symbol := range held {
		snapshot := models.HoldingSnapshot{
			Symbol:   symbol,
			Quantity: quantities[symbol],
			Currency: nativeCurrency[symbol],
		}

		latest, err := e.store.LatestPrice(symbol)
		if err != nil {
			slog.Warn("no price data for held symbol, market value reported as zero",
				slog.String("symbol", symbol))
			snapshot.MarketValue = decimal.Zero
		} else {
			snapshot.MarketValue = snapshot.Quantity.Mul(latest.Close)
			if resolver != nil && targetCurrency != snapshot.Currency {
				converted, ok := resolver.Convert(snapshot.MarketValue, snapshot.Currency, targetCurrency, e.today())
				if ok {
					snapshot.MarketValue = converted
					snapshot.Currency = targetCurrency
				}
			}
		}

		xirr, err := e.XIRR(symbol)
		if err != nil {
			slog.Error("failed to compute return for symbol",
				slog.String("symbol", symbol), slog.String("err", err.Error()))
		} else {
			snapshot.XirrPct = xirr
		}

		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}
