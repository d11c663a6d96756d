package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// observation is one dated data point in a price or rate series
type observation struct {
	date  time.Time
	value decimal.Decimal
}

// series holds observations for one symbol or pair, sorted ascending by
// date, so an as-of lookup is a binary search instead of a table scan.
type series struct {
	obs []observation
}

func (s *series) add(date time.Time, value decimal.Decimal) {
	s.obs = append(s.obs, observation{date: toDate(date), value: value})
}

func (s *series) sort() {
	sort.SliceStable(s.obs, func(i, j int) bool {
		return s.obs[i].date.Before(s.obs[j].date)
	})
}

// asOf returns the latest observation on or before the given date
// (last-observation-carry-forward). ok is false when no observation exists
// on or before the date.
func (s *series) asOf(date time.Time) (decimal.Decimal, bool) {
	if s == nil || len(s.obs) == 0 {
		return decimal.Zero, false
	}
	d := toDate(date)
	// First index with obs date strictly after d.
	i := sort.Search(len(s.obs), func(i int) bool {
		return s.obs[i].date.After(d)
	})
	if i == 0 {
		return decimal.Zero, false
	}
	return s.obs[i-1].value, true
}

// Resolver answers as-of price and rate lookups over indexed series. It is
// built once per analytics run from the store and is read-only afterwards.
type Resolver struct {
	prices map[string]*series
	rates  map[string]*series
}

// NewResolver loads and indexes price series for the given symbols and rate
// series for the given pairs
func NewResolver(store MarketData, symbols, pairs []string) (*Resolver, error) {
	r := &Resolver{
		prices: make(map[string]*series, len(symbols)),
		rates:  make(map[string]*series, len(pairs)),
	}

	for _, symbol := range symbols {
		points, err := store.PriceSeries(symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to load price series for %s: %w", symbol, err)
		}
		s := &series{}
		for _, p := range points {
			s.add(p.Date, p.Close)
		}
		s.sort()
		r.prices[symbol] = s
	}

	for _, pair := range pairs {
		points, err := store.RateSeries(pair)
		if err != nil {
			return nil, fmt.Errorf("failed to load rate series for %s: %w", pair, err)
		}
		s := &series{}
		for _, p := range points {
			s.add(p.Date, p.Rate)
		}
		s.sort()
		r.rates[pair] = s
	}

	return r, nil
}

// PriceAsOf returns the latest close for the symbol on or before the date
func (r *Resolver) PriceAsOf(symbol string, date time.Time) (decimal.Decimal, bool) {
	return r.prices[symbol].asOf(date)
}

// RateAsOf returns the latest rate for the pair on or before the date
func (r *Resolver) RateAsOf(pair string, date time.Time) (decimal.Decimal, bool) {
	return r.rates[pair].asOf(date)
}

// Convert converts an amount between currencies as of the given date. All
// stored pairs are USD-based, so conversions between two non-USD currencies
// bridge through USD. When a needed rate has no observation on or before the
// date the amount is returned unconverted and ok is false; callers decide
// whether the lossy fallback is acceptable.
func (r *Resolver) Convert(amount decimal.Decimal, from, to string, date time.Time) (decimal.Decimal, bool) {
	if from == to {
		return amount, true
	}

	if from == models.CurrencyUSD {
		rate, ok := r.RateAsOf(models.CurrencyUSD+to, date)
		if !ok {
			return amount, false
		}
		return amount.Mul(rate), true
	}

	if to == models.CurrencyUSD {
		rate, ok := r.RateAsOf(models.CurrencyUSD+from, date)
		if !ok || rate.IsZero() {
			return amount, false
		}
		return amount.Div(rate), true
	}

	// Bridge through USD: from -> USD -> to.
	fromRate, ok := r.RateAsOf(models.CurrencyUSD+from, date)
	if !ok || fromRate.IsZero() {
		return amount, false
	}
	toRate, ok := r.RateAsOf(models.CurrencyUSD+to, date)
	if !ok {
		return amount, false
	}
	return amount.Div(fromRate).Mul(toRate), true
}
