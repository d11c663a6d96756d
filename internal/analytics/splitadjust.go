package analytics

import (
	"fmt"
	"log/slog"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// RunAdjustmentPass applies every stored split event to the trade ledger.
// Splits are grouped per symbol and applied in ascending effective-date
// order, so a later split's cutoff filter sees quantities already rescaled
// by earlier splits and ratios compound (a 2:1 then a 3:1 split leaves a
// pre-first-split trade at 6x). Only trades executed strictly before a
// split's effective date are rescaled; proceeds are realized cash and stay
// untouched. Each trade is flagged adjusted once its symbol's splits have
// all been applied, and the flag is terminal.
//
// The pass is idempotent: rerunning it finds no unflagged candidates and
// changes nothing. Returns the number of trades adjusted.
func (e *Engine) RunAdjustmentPass() (int, error) {
	splits, err := e.store.ListSplits()
	if err != nil {
		return 0, fmt.Errorf("failed to list split events: %w", err)
	}
	if len(splits) == 0 {
		slog.Info("no split events stored, nothing to adjust")
		return 0, nil
	}

	// ListSplits is ascending by effective date, so the per-symbol groups
	// stay ordered.
	bySymbol := make(map[string][]*models.SplitEvent)
	var symbols []string
	for _, s := range splits {
		if _, seen := bySymbol[s.Symbol]; !seen {
			symbols = append(symbols, s.Symbol)
		}
		bySymbol[s.Symbol] = append(bySymbol[s.Symbol], s)
	}

	adjusted := 0
	for _, symbol := range symbols {
		n, err := e.store.AdjustTradesForSplits(symbol, bySymbol[symbol])
		if err != nil {
			return adjusted, fmt.Errorf("failed to apply splits for %s: %w", symbol, err)
		}
		if n == 0 {
			continue
		}

		slog.Info("applied split adjustments",
			slog.String("symbol", symbol),
			slog.Int("splits", len(bySymbol[symbol])),
			slog.Int("trades", n))
		adjusted += n
	}

	return adjusted, nil
}
