package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// Store is the market data persistence the enricher writes to
type Store interface {
	UniqueTradeSymbols() ([]string, error)
	SplitCountForSymbol(symbol string) (int, error)
	CreateSplitEventBatch(splits []*models.SplitEvent) error
	LatestPriceDate(symbol string) (*time.Time, error)
	CreatePricePointBatch(prices []*models.PricePoint) error
	LatestRateDate(pair string) (*time.Time, error)
	CreateFxRateBatch(rates []*models.FxRate) error
}

// Fetcher is the external market data source
type Fetcher interface {
	FetchSplits(ctx context.Context, symbol string) ([]*models.SplitEvent, error)
	FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]*models.PricePoint, error)
	FetchRates(ctx context.Context, pair string, start, end time.Time) ([]*models.FxRate, error)
}

// Adjuster runs the split adjustment pass over the trade ledger
type Adjuster interface {
	RunAdjustmentPass() (int, error)
}

// Locker serializes enrichment passes across processes
type Locker interface {
	AcquireEnrichmentLock(ctx context.Context, ttl time.Duration) (bool, error)
	ReleaseEnrichmentLock(ctx context.Context) error
	SetLastEnriched(ctx context.Context, at time.Time) error
}

// Publisher emits enrichment lifecycle events
type Publisher interface {
	PublishTradesAdjusted(ctx context.Context, count int) error
	PublishEnrichmentCompleted(ctx context.Context) error
}

const lockTTL = 30 * time.Minute

// Enricher fetches splits, prices and FX rates for every traded symbol and
// applies split adjustments to the ledger. A run is idempotent: split data
// is only fetched for symbols without any, price and rate fetches resume
// from the day after the latest stored observation, and the adjustment pass
// skips trades already flagged.
//
// Failures are isolated per symbol and per pair: one unreachable series is
// logged and skipped without aborting the batch for the others.
type Enricher struct {
	store        Store
	fetcher      Fetcher
	adjuster     Adjuster
	locker       Locker
	publisher    Publisher
	pairs        []string
	defaultStart time.Time
	fetchDelay   time.Duration
	now          func() time.Time
}

// NewEnricher creates an enrichment orchestrator. locker and publisher may
// be nil, in which case locking and event publishing are skipped.
func NewEnricher(store Store, fetcher Fetcher, adjuster Adjuster, locker Locker, publisher Publisher, defaultStart time.Time, fetchDelay time.Duration) *Enricher {
	return &Enricher{
		store:        store,
		fetcher:      fetcher,
		adjuster:     adjuster,
		locker:       locker,
		publisher:    publisher,
		pairs:        []string{models.PairUSDSGD, models.PairUSDINR},
		defaultStart: defaultStart,
		fetchDelay:   fetchDelay,
		now:          time.Now,
	}
}

// Run executes one full enrichment pass: splits, adjustment, prices, rates.
// Safe to call repeatedly; concurrent runs are serialized by the lock.
func (e *Enricher) Run(ctx context.Context) error {
	if e.locker != nil {
		acquired, err := e.locker.AcquireEnrichmentLock(ctx, lockTTL)
		if err != nil {
			return err
		}
		if !acquired {
			slog.Info("enrichment pass already running elsewhere, skipping")
			return nil
		}
		defer func() {
			if err := e.locker.ReleaseEnrichmentLock(ctx); err != nil {
				slog.Error("failed to release enrichment lock", slog.String("err", err.Error()))
			}
		}()
	}

	symbols, err := e.store.UniqueTradeSymbols()
	if err != nil {
		return fmt.Errorf("failed to list traded symbols: %w", err)
	}

	for _, symbol := range symbols {
		if err := e.fetchSplitsOnce(ctx, symbol); err != nil {
			slog.Error("failed to fetch splits, skipping symbol",
				slog.String("symbol", symbol), slog.String("err", err.Error()))
		}
		e.pause(ctx)
	}

	// An adjustment failure must not starve the other symbols of price and
	// rate history; log it and carry on with the fetch phases.
	adjusted, err := e.adjuster.RunAdjustmentPass()
	if err != nil {
		slog.Error("split adjustment pass failed, continuing with market data fetch",
			slog.String("err", err.Error()))
	}
	if adjusted > 0 && e.publisher != nil {
		if err := e.publisher.PublishTradesAdjusted(ctx, adjusted); err != nil {
			slog.Error("failed to publish adjustment event", slog.String("err", err.Error()))
		}
	}

	for _, symbol := range symbols {
		if err := e.fetchPrices(ctx, symbol); err != nil {
			slog.Error("failed to fetch prices, skipping symbol",
				slog.String("symbol", symbol), slog.String("err", err.Error()))
		}
		e.pause(ctx)
	}

	for _, pair := range e.pairs {
		if err := e.fetchRates(ctx, pair); err != nil {
			slog.Error("failed to fetch rates, skipping pair",
				slog.String("pair", pair), slog.String("err", err.Error()))
		}
		e.pause(ctx)
	}

	if e.locker != nil {
		if err := e.locker.SetLastEnriched(ctx, e.now()); err != nil {
			slog.Error("failed to record enrichment time", slog.String("err", err.Error()))
		}
	}
	if e.publisher != nil {
		if err := e.publisher.PublishEnrichmentCompleted(ctx); err != nil {
			slog.Error("failed to publish enrichment event", slog.String("err", err.Error()))
		}
	}

	slog.Info("enrichment pass completed",
		slog.Int("symbols", len(symbols)), slog.Int("tradesAdjusted", adjusted))
	return nil
}

// fetchSplitsOnce fetches split history for a symbol unless already stored
func (e *Enricher) fetchSplitsOnce(ctx context.Context, symbol string) error {
	count, err := e.store.SplitCountForSymbol(symbol)
	if err != nil {
		return err
	}
	if count > 0 {
		slog.Debug("split data already present", slog.String("symbol", symbol))
		return nil
	}

	splits, err := e.fetcher.FetchSplits(ctx, symbol)
	if err != nil {
		return err
	}
	if len(splits) == 0 {
		slog.Debug("no split history", slog.String("symbol", symbol))
		return nil
	}

	if err := e.store.CreateSplitEventBatch(splits); err != nil {
		return err
	}
	slog.Info("stored split events", slog.String("symbol", symbol), slog.Int("count", len(splits)))
	return nil
}

func (e *Enricher) fetchPrices(ctx context.Context, symbol string) error {
	latest, err := e.store.LatestPriceDate(symbol)
	if err != nil {
		return err
	}
	start, end, upToDate := e.fetchWindow(latest)
	if upToDate {
		slog.Debug("prices up to date", slog.String("symbol", symbol))
		return nil
	}

	prices, err := e.fetcher.FetchDailyCloses(ctx, symbol, start, end)
	if err != nil {
		return err
	}
	if len(prices) == 0 {
		return nil
	}
	if err := e.store.CreatePricePointBatch(prices); err != nil {
		return err
	}
	slog.Info("stored price points", slog.String("symbol", symbol), slog.Int("count", len(prices)))
	return nil
}

func (e *Enricher) fetchRates(ctx context.Context, pair string) error {
	latest, err := e.store.LatestRateDate(pair)
	if err != nil {
		return err
	}
	start, end, upToDate := e.fetchWindow(latest)
	if upToDate {
		slog.Debug("rates up to date", slog.String("pair", pair))
		return nil
	}

	rates, err := e.fetcher.FetchRates(ctx, pair, start, end)
	if err != nil {
		return err
	}
	if len(rates) == 0 {
		return nil
	}
	if err := e.store.CreateFxRateBatch(rates); err != nil {
		return err
	}
	slog.Info("stored fx rates", slog.String("pair", pair), slog.Int("count", len(rates)))
	return nil
}

// fetchWindow computes the incremental fetch range: the day after the latest
// stored observation (or the configured default start) through today
func (e *Enricher) fetchWindow(latest *time.Time) (start, end time.Time, upToDate bool) {
	end = e.now().UTC().Truncate(24 * time.Hour)
	if latest != nil {
		start = latest.AddDate(0, 0, 1)
	} else {
		start = e.defaultStart
	}
	return start, end, start.After(end)
}

func (e *Enricher) pause(ctx context.Context) {
	if e.fetchDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(e.fetchDelay):
	}
}
