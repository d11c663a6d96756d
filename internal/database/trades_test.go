package database

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rknair/portfolio-analytics/internal/models"
)

func newTrade(symbol, currency string, executedAt time.Time, quantity, price, proceeds float64) *models.Trade {
	return &models.Trade{
		AssetCategory: "Stocks",
		Currency:      currency,
		Symbol:        symbol,
		ExecutedAt:    executedAt,
		Quantity:      decimal.NewFromFloat(quantity),
		Price:         decimal.NewFromFloat(price),
		Proceeds:      decimal.NewFromFloat(proceeds),
	}
}

func TestTradesRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	jan1 := time.Date(2022, time.January, 1, 10, 30, 0, 0, time.UTC)
	jun1 := time.Date(2022, time.June, 1, 0, 0, 0, 0, time.UTC)

	t.Run("CreateTrade creates new trade", func(t *testing.T) {
		testDB.TruncateAll(t)

		trade := newTrade("AAPL", "USD", jan1, 100, 150.25, -15025)
		trade.Commission = decimal.NewFromFloat(-1.5)
		trade.Code = "O"

		err := testDB.CreateTrade(trade)
		require.NoError(t, err)
		assert.NotZero(t, trade.ID)
		assert.False(t, trade.CreatedAt.IsZero())
	})

	t.Run("CreateTradeBatch inserts all trades in one transaction", func(t *testing.T) {
		testDB.TruncateAll(t)

		trades := []*models.Trade{
			newTrade("AAPL", "USD", jan1, 100, 150, -15000),
			newTrade("MSFT", "USD", jan1.AddDate(0, 1, 0), 50, 300, -15000),
			newTrade("D05.SI", "SGD", jan1.AddDate(0, 2, 0), 200, 35, -7000),
		}
		err := testDB.CreateTradeBatch(trades)
		require.NoError(t, err)

		count, err := testDB.TradeCount()
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("ListTrades returns chronological order", func(t *testing.T) {
		testDB.TruncateAll(t)

		later := newTrade("AAPL", "USD", jan1.AddDate(0, 3, 0), 10, 160, -1600)
		earlier := newTrade("AAPL", "USD", jan1, 100, 150, -15000)
		require.NoError(t, testDB.CreateTrade(later))
		require.NoError(t, testDB.CreateTrade(earlier))

		trades, err := testDB.ListTrades()
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.True(t, trades[0].ExecutedAt.Before(trades[1].ExecutedAt))
		assert.True(t, decimal.NewFromInt(100).Equal(trades[0].Quantity))
	})

	t.Run("ListTradesBySymbol filters", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.CreateTrade(newTrade("AAPL", "USD", jan1, 100, 150, -15000)))
		require.NoError(t, testDB.CreateTrade(newTrade("MSFT", "USD", jan1, 50, 300, -15000)))

		trades, err := testDB.ListTradesBySymbol("AAPL")
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, "AAPL", trades[0].Symbol)
	})

	t.Run("UniqueTradeSymbols deduplicates", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.CreateTrade(newTrade("MSFT", "USD", jan1, 50, 300, -15000)))
		require.NoError(t, testDB.CreateTrade(newTrade("AAPL", "USD", jan1, 100, 150, -15000)))
		require.NoError(t, testDB.CreateTrade(newTrade("AAPL", "USD", jan1.AddDate(0, 1, 0), 10, 160, -1600)))

		symbols, err := testDB.UniqueTradeSymbols()
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
	})

	t.Run("AdjustTradesForSplits rescales and flags trades before the split", func(t *testing.T) {
		testDB.TruncateAll(t)

		before := newTrade("AAPL", "USD", jan1, 100, 150, -15000)
		after := newTrade("AAPL", "USD", jun1.AddDate(0, 1, 0), 10, 80, -800)
		require.NoError(t, testDB.CreateTrade(before))
		require.NoError(t, testDB.CreateTrade(after))

		splits := []*models.SplitEvent{
			{Symbol: "AAPL", EffectiveDate: jun1, Ratio: decimal.NewFromInt(2)},
		}
		adjusted, err := testDB.AdjustTradesForSplits("AAPL", splits)
		require.NoError(t, err)
		assert.Equal(t, 1, adjusted)

		trades, err := testDB.ListTradesBySymbol("AAPL")
		require.NoError(t, err)
		require.Len(t, trades, 2)

		assert.True(t, decimal.NewFromInt(200).Equal(trades[0].Quantity), "got %s", trades[0].Quantity)
		assert.True(t, decimal.NewFromInt(75).Equal(trades[0].Price))
		assert.True(t, decimal.NewFromInt(-15000).Equal(trades[0].Proceeds), "proceeds stay untouched")
		assert.True(t, trades[0].SplitAdjusted)

		assert.True(t, decimal.NewFromInt(10).Equal(trades[1].Quantity))
		assert.False(t, trades[1].SplitAdjusted)
	})

	t.Run("AdjustTradesForSplits compounds ratios across splits", func(t *testing.T) {
		testDB.TruncateAll(t)

		early := newTrade("AAPL", "USD", jan1, 10, 60, -600)
		require.NoError(t, testDB.CreateTrade(early))

		splits := []*models.SplitEvent{
			{Symbol: "AAPL", EffectiveDate: jun1, Ratio: decimal.NewFromInt(2)},
			{Symbol: "AAPL", EffectiveDate: jun1.AddDate(0, 1, 0), Ratio: decimal.NewFromInt(3)},
		}
		adjusted, err := testDB.AdjustTradesForSplits("AAPL", splits)
		require.NoError(t, err)
		assert.Equal(t, 1, adjusted)

		trades, err := testDB.ListTradesBySymbol("AAPL")
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.True(t, decimal.NewFromInt(60).Equal(trades[0].Quantity), "got %s", trades[0].Quantity)
		assert.True(t, decimal.NewFromInt(10).Equal(trades[0].Price))
	})

	t.Run("AdjustTradesForSplits is idempotent", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.CreateTrade(newTrade("AAPL", "USD", jan1, 100, 150, -15000)))

		splits := []*models.SplitEvent{
			{Symbol: "AAPL", EffectiveDate: jun1, Ratio: decimal.NewFromInt(2)},
		}
		adjusted, err := testDB.AdjustTradesForSplits("AAPL", splits)
		require.NoError(t, err)
		assert.Equal(t, 1, adjusted)

		adjusted, err = testDB.AdjustTradesForSplits("AAPL", splits)
		require.NoError(t, err)
		assert.Zero(t, adjusted)

		trades, err := testDB.ListTradesBySymbol("AAPL")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(200).Equal(trades[0].Quantity))
	})

	t.Run("AdjustTradesForSplits rejects non-positive ratio", func(t *testing.T) {
		testDB.TruncateAll(t)

		splits := []*models.SplitEvent{
			{Symbol: "AAPL", EffectiveDate: jun1, Ratio: decimal.Zero},
		}
		_, err := testDB.AdjustTradesForSplits("AAPL", splits)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid split ratio")
	})
}
