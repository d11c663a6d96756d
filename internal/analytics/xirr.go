package analytics

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	daysPerYear   = 365.25
	maxIterations = 100
	tolerance     = 1e-7
)

// cashFlow is one dated entry in a money-weighted-return schedule
type cashFlow struct {
	date   time.Time
	amount float64
}

// XIRR computes the annualized money-weighted return for a symbol, as a
// percentage. The cash-flow schedule is one entry per trade (signed
// proceeds) plus, when the net quantity is strictly positive and a price is
// available, a terminal entry valuing the position at the latest recorded
// close as if liquidated today.
//
// The result is nil when the return is undefined: no trades, a schedule
// without both a positive and a negative flow, or a schedule the solver
// cannot converge on. None of these are errors.
func (e *Engine) XIRR(symbol string) (*float64, error) {
	trades, err := e.store.ListTradesBySymbol(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades for %s: %w", symbol, err)
	}
	if len(trades) == 0 {
		return nil, nil
	}

	flows := make([]cashFlow, 0, len(trades)+1)
	netQuantity := decimal.Zero
	for _, t := range trades {
		flows = append(flows, cashFlow{date: t.TradeDate(), amount: t.Proceeds.InexactFloat64()})
		netQuantity = netQuantity.Add(t.Quantity)
	}

	if netQuantity.IsPositive() {
		// The open position is marked at the latest recorded close rather
		// than an as-of lookup for today. Enrichment extends every series
		// through today, so the two only diverge when the series is stale,
		// and then the freshest observation is still the better mark.
		latest, err := e.store.LatestPrice(symbol)
		if err != nil {
			slog.Warn("no price data for symbol, omitting terminal value from return schedule",
				slog.String("symbol", symbol))
		} else {
			value := netQuantity.Mul(latest.Close)
			flows = append(flows, cashFlow{date: e.today(), amount: value.InexactFloat64()})
		}
	}

	if !hasBothSigns(flows) {
		slog.Debug("return undefined: schedule needs both positive and negative cash flows",
			slog.String("symbol", symbol))
		return nil, nil
	}

	rate, ok := solveXIRR(flows)
	if !ok {
		slog.Warn("return solver did not converge", slog.String("symbol", symbol))
		return nil, nil
	}

	pct := rate * 100
	return &pct, nil
}

func hasBothSigns(flows []cashFlow) bool {
	var hasPositive, hasNegative bool
	for _, f := range flows {
		if f.amount > 0 {
			hasPositive = true
		}
		if f.amount < 0 {
			hasNegative = true
		}
	}
	return hasPositive && hasNegative
}

// solveXIRR finds the rate r such that the net present value of the schedule
// is zero, discounting each flow by (1+r)^years-since-first-flow. Newton's
// method from a conventional starting guess, falling back to bisection when
// Newton leaves the valid domain or fails to converge.
func solveXIRR(flows []cashFlow) (float64, bool) {
	first := flows[0].date
	years := make([]float64, len(flows))
	spansTime := false
	for i, f := range flows {
		years[i] = f.date.Sub(first).Hours() / 24 / daysPerYear
		if years[i] > 0 {
			spansTime = true
		}
	}
	// A schedule collapsed onto a single day has no time axis: every
	// discount exponent is zero, NPV is constant in the rate, and any
	// "root" would just echo the starting guess. The return is undefined.
	if !spansTime {
		return 0, false
	}

	npv := func(rate float64) float64 {
		var sum float64
		for i, f := range flows {
			sum += f.amount / math.Pow(1+rate, years[i])
		}
		return sum
	}
	derivative := func(rate float64) float64 {
		var sum float64
		for i, f := range flows {
			if years[i] == 0 {
				continue
			}
			sum -= years[i] * f.amount / math.Pow(1+rate, years[i]+1)
		}
		return sum
	}

	rate := 0.1
	for i := 0; i < maxIterations; i++ {
		value := npv(rate)
		if math.Abs(value) < tolerance {
			return rate, true
		}
		d := derivative(rate)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			break
		}
		next := rate - value/d
		if math.IsNaN(next) || next <= -1 {
			break
		}
		if math.Abs(next-rate) < tolerance {
			return next, true
		}
		rate = next
	}

	return bisectXIRR(npv)
}

// bisectXIRR brackets a root of the NPV function on (-1, 10] and narrows it
// by bisection. Returns false when no sign change exists in the bracket.
func bisectXIRR(npv func(float64) float64) (float64, bool) {
	lo, hi := -0.9999, 10.0
	fLo, fHi := npv(lo), npv(hi)
	if math.IsNaN(fLo) || math.IsNaN(fHi) || fLo*fHi > 0 {
		return 0, false
	}

	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		fMid := npv(mid)
		if math.Abs(fMid) < tolerance || hi-lo < tolerance {
			return mid, true
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}
	return (lo + hi) / 2, true
}
