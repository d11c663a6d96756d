package analytics

import (
	"time"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// MarketData is the store interface the analytics engine reads from. The
// postgres store in internal/database implements it; tests use an in-memory
// implementation.
type MarketData interface {
	ListTrades() ([]*models.Trade, error)
	ListTradesBySymbol(symbol string) ([]*models.Trade, error)
	UniqueTradeSymbols() ([]string, error)
	ListSplits() ([]*models.SplitEvent, error)
	AdjustTradesForSplits(symbol string, splits []*models.SplitEvent) (int, error)
	PriceSeries(symbol string) ([]*models.PricePoint, error)
	RateSeries(pair string) ([]*models.FxRate, error)
	LatestPrice(symbol string) (*models.PricePoint, error)
}

// Engine computes portfolio analytics from the trade ledger and market data.
// All methods recompute from raw records on every call; nothing is cached
// between requests.
type Engine struct {
	store MarketData
	pairs []string
	now   func() time.Time
}

// New creates an analytics engine over the given market data store
func New(store MarketData) *Engine {
	return &Engine{
		store: store,
		pairs: []string{models.PairUSDSGD, models.PairUSDINR},
		now:   time.Now,
	}
}

// toDate truncates a timestamp to a UTC calendar date
func toDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (e *Engine) today() time.Time {
	return toDate(e.now())
}
