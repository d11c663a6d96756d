package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// memoryStore implements MarketData for unit tests
type memoryStore struct {
	trades []*models.Trade
	splits []*models.SplitEvent
	prices map[string][]*models.PricePoint
	rates  map[string][]*models.FxRate

	// Track mutation calls for idempotency assertions
	AdjustCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		prices: make(map[string][]*models.PricePoint),
		rates:  make(map[string][]*models.FxRate),
	}
}

func (m *memoryStore) ListTrades() ([]*models.Trade, error) {
	out := make([]*models.Trade, len(m.trades))
	copy(out, m.trades)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExecutedAt.Before(out[j].ExecutedAt)
	})
	return out, nil
}

func (m *memoryStore) ListTradesBySymbol(symbol string) ([]*models.Trade, error) {
	all, _ := m.ListTrades()
	var out []*models.Trade
	for _, t := range all {
		if t.Symbol == symbol {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryStore) UniqueTradeSymbols() ([]string, error) {
	seen := make(map[string]bool)
	var symbols []string
	for _, t := range m.trades {
		if !seen[t.Symbol] {
			seen[t.Symbol] = true
			symbols = append(symbols, t.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (m *memoryStore) ListSplits() ([]*models.SplitEvent, error) {
	out := make([]*models.SplitEvent, len(m.splits))
	copy(out, m.splits)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveDate.Before(out[j].EffectiveDate)
	})
	return out, nil
}

func (m *memoryStore) AdjustTradesForSplits(symbol string, splits []*models.SplitEvent) (int, error) {
	m.AdjustCalls++
	adjusted := 0
	for _, t := range m.trades {
		if t.Symbol != symbol || t.SplitAdjusted {
			continue
		}
		multiplier := decimal.NewFromInt(1)
		for _, s := range splits {
			if t.TradeDate().Before(toDate(s.EffectiveDate)) {
				multiplier = multiplier.Mul(s.Ratio)
			}
		}
		if multiplier.Equal(decimal.NewFromInt(1)) {
			continue
		}
		t.Quantity = t.Quantity.Mul(multiplier)
		t.Price = t.Price.Div(multiplier)
		t.SplitAdjusted = true
		adjusted++
	}
	return adjusted, nil
}

func (m *memoryStore) PriceSeries(symbol string) ([]*models.PricePoint, error) {
	return m.prices[symbol], nil
}

func (m *memoryStore) RateSeries(pair string) ([]*models.FxRate, error) {
	return m.rates[pair], nil
}

func (m *memoryStore) LatestPrice(symbol string) (*models.PricePoint, error) {
	points := m.prices[symbol]
	if len(points) == 0 {
		return nil, fmt.Errorf("no price data found for %s", symbol)
	}
	latest := points[0]
	for _, p := range points[1:] {
		if p.Date.After(latest.Date) {
			latest = p
		}
	}
	return latest, nil
}

func (m *memoryStore) addTrade(id int, symbol, currency string, executedAt time.Time, quantity, price, proceeds float64) *models.Trade {
	t := &models.Trade{
		ID:         id,
		Symbol:     symbol,
		Currency:   currency,
		ExecutedAt: executedAt,
		Quantity:   decimal.NewFromFloat(quantity),
		Price:      decimal.NewFromFloat(price),
		Proceeds:   decimal.NewFromFloat(proceeds),
	}
	m.trades = append(m.trades, t)
	return t
}

func (m *memoryStore) addSplit(symbol string, effectiveDate time.Time, ratio float64) {
	m.splits = append(m.splits, &models.SplitEvent{
		ID:            len(m.splits) + 1,
		Symbol:        symbol,
		EffectiveDate: effectiveDate,
		Ratio:         decimal.NewFromFloat(ratio),
	})
}

func (m *memoryStore) addPrice(symbol string, date time.Time, close float64) {
	m.prices[symbol] = append(m.prices[symbol], &models.PricePoint{
		Symbol: symbol,
		Date:   date,
		Close:  decimal.NewFromFloat(close),
	})
}

func (m *memoryStore) addRate(pair string, date time.Time, rate float64) {
	m.rates[pair] = append(m.rates[pair], &models.FxRate{
		Pair: pair,
		Date: date,
		Rate: decimal.NewFromFloat(rate),
	})
}

// day builds a UTC calendar date
func day(year int, month time.Month, dayOfMonth int) time.Time {
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

// newTestEngine creates an engine with a frozen clock
func newTestEngine(store MarketData, today time.Time) *Engine {
	e := New(store)
	e.now = func() time.Time { return today }
	return e
}
