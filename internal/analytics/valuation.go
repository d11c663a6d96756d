package analytics

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// DailyValue reconstructs the portfolio's mark-to-market value for every
// calendar day from the earliest trade through today, inclusive, in the
// target currency. The output is strictly ascending by date with no gaps.
//
// Holdings are accumulated incrementally by walking the date-sorted ledger
// once, which produces output identical to recomputing full holdings per day.
// Per day, each symbol with a strictly positive holding is marked at its
// as-of native-currency close; symbols with no resolvable price contribute
// nothing for that day. A symbol's native currency is the currency recorded
// on its first trade.
func (e *Engine) DailyValue(targetCurrency string) ([]models.DailyValue, error) {
	trades, err := e.store.ListTrades()
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	if len(trades) == 0 {
		slog.Warn("no trades in ledger, daily value series is empty")
		return []models.DailyValue{}, nil
	}

	symbols := make([]string, 0)
	nativeCurrency := make(map[string]string)
	for _, t := range trades {
		if _, seen := nativeCurrency[t.Symbol]; !seen {
			nativeCurrency[t.Symbol] = t.Currency
			symbols = append(symbols, t.Symbol)
		}
	}
	sort.Strings(symbols)

	resolver, err := NewResolver(e.store, symbols, e.pairs)
	if err != nil {
		return nil, err
	}

	start := trades[0].TradeDate()
	end := e.today()

	holdings := make(map[string]decimal.Decimal, len(symbols))
	values := make([]models.DailyValue, 0, int(end.Sub(start).Hours()/24)+1)

	ti := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		for ti < len(trades) && !trades[ti].TradeDate().After(day) {
			t := trades[ti]
			holdings[t.Symbol] = holdings[t.Symbol].Add(t.Quantity)
			ti++
		}

		total := decimal.Zero
		for _, symbol := range symbols {
			quantity := holdings[symbol]
			if !quantity.IsPositive() {
				continue
			}
			price, ok := resolver.PriceAsOf(symbol, day)
			if !ok {
				continue
			}
			value := quantity.Mul(price)
			converted, _ := resolver.Convert(value, nativeCurrency[symbol], targetCurrency, day)
			total = total.Add(converted)
		}

		values = append(values, models.DailyValue{Date: day, Value: total})
	}

	return values, nil
}
