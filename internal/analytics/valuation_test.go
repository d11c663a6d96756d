package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rknair/portfolio-analytics/internal/models"
)

func valueOn(t *testing.T, values []models.DailyValue, date time.Time) decimal.Decimal {
	t.Helper()
	for _, v := range values {
		if v.Date.Equal(date) {
			return v.Value
		}
	}
	t.Fatalf("no entry for %s", date.Format("2006-01-02"))
	return decimal.Zero
}

func TestDailyValue(t *testing.T) {
	t.Run("covers every calendar day with no gaps", func(t *testing.T) {
		store := newMemoryStore()
		store.addTrade(1, "ABC", "USD", day(2023, time.January, 1), 10, 10, -100)
		store.addPrice("ABC", day(2023, time.January, 1), 10)

		today := day(2023, time.February, 15)
		engine := newTestEngine(store, today)

		values, err := engine.DailyValue("USD")
		require.NoError(t, err)

		require.Len(t, values, 46) // Jan 1 .. Feb 15 inclusive
		assert.True(t, values[0].Date.Equal(day(2023, time.January, 1)))
		assert.True(t, values[len(values)-1].Date.Equal(today))
		for i := 1; i < len(values); i++ {
			assert.True(t, values[i].Date.Equal(values[i-1].Date.AddDate(0, 0, 1)),
				"dates must be consecutive at index %d", i)
		}
	})

	t.Run("every value is non-negative", func(t *testing.T) {
		store := newMemoryStore()
		store.addTrade(1, "ABC", "USD", day(2023, time.January, 1), 10, 10, -100)
		store.addTrade(2, "ABC", "USD", day(2023, time.January, 10), -10, 12, 120)
		store.addPrice("ABC", day(2023, time.January, 1), 10)

		engine := newTestEngine(store, day(2023, time.January, 31))
		values, err := engine.DailyValue("USD")
		require.NoError(t, err)

		for _, v := range values {
			assert.False(t, v.Value.IsNegative(), "value on %s is negative", v.Date)
		}
	})

	t.Run("sold-off position stops contributing", func(t *testing.T) {
		store := newMemoryStore()
		store.addTrade(1, "ABC", "USD", day(2023, time.January, 1), 10, 10, -100)
		store.addTrade(2, "ABC", "USD", day(2023, time.January, 10), -10, 12, 120)
		store.addPrice("ABC", day(2023, time.January, 1), 10)

		engine := newTestEngine(store, day(2023, time.January, 20))
		values, err := engine.DailyValue("USD")
		require.NoError(t, err)

		assert.True(t, decimal.NewFromInt(100).Equal(valueOn(t, values, day(2023, time.January, 5))))
		assert.True(t, valueOn(t, values, day(2023, time.January, 10)).IsZero())
		assert.True(t, valueOn(t, values, day(2023, time.January, 20)).IsZero())
	})

	t.Run("symbol with no price yet contributes zero, not an error", func(t *testing.T) {
		store := newMemoryStore()
		store.addTrade(1, "ABC", "USD", day(2023, time.January, 1), 10, 10, -100)
		store.addTrade(2, "XYZ", "USD", day(2023, time.January, 1), 5, 20, -100)
		store.addPrice("ABC", day(2023, time.January, 1), 10)
		// XYZ has prices only from Jan 5.
		store.addPrice("XYZ", day(2023, time.January, 5), 20)

		engine := newTestEngine(store, day(2023, time.January, 10))
		values, err := engine.DailyValue("USD")
		require.NoError(t, err)

		assert.True(t, decimal.NewFromInt(100).Equal(valueOn(t, values, day(2023, time.January, 2))))
		assert.True(t, decimal.NewFromInt(200).Equal(valueOn(t, values, day(2023, time.January, 6))))
	})

	t.Run("converts using the symbol's first-trade currency", func(t *testing.T) {
		store := newMemoryStore()
		store.addTrade(1, "INFY", "INR", day(2023, time.January, 2), 10, 800, -8000)
		store.addPrice("INFY", day(2023, time.January, 2), 800)
		store.addRate(models.PairUSDINR, day(2023, time.January, 1), 80)

		engine := newTestEngine(store, day(2023, time.January, 5))
		values, err := engine.DailyValue("USD")
		require.NoError(t, err)

		// 10 shares x 800 INR = 8000 INR = 100 USD at 80.
		assert.True(t, decimal.NewFromInt(100).Equal(valueOn(t, values, day(2023, time.January, 3))))
	})

	t.Run("missing rate leaves value unconverted by policy", func(t *testing.T) {
		store := newMemoryStore()
		store.addTrade(1, "INFY", "INR", day(2023, time.January, 2), 10, 800, -8000)
		store.addPrice("INFY", day(2023, time.January, 2), 800)
		// No USDINR rates at all.

		engine := newTestEngine(store, day(2023, time.January, 5))
		values, err := engine.DailyValue("USD")
		require.NoError(t, err)

		assert.True(t, decimal.NewFromInt(8000).Equal(valueOn(t, values, day(2023, time.January, 3))))
	})

	t.Run("empty ledger yields empty series", func(t *testing.T) {
		engine := newTestEngine(newMemoryStore(), day(2023, time.January, 5))
		values, err := engine.DailyValue("USD")
		require.NoError(t, err)
		assert.Empty(t, values)
	})
}

func TestDailyValueAfterSplitAdjustment(t *testing.T) {
	// Buy 100 ABC at $10, 2:1 split, later sell 100 at $8. After the
	// adjustment pass the buy holds 200 shares at $5; valuation while the
	// full position is open marks 200 shares, and 100 after the sale.
	store := newMemoryStore()
	store.addTrade(1, "ABC", "USD", day(2022, time.January, 1), 100, 10, -1000)
	store.addTrade(2, "ABC", "USD", day(2022, time.December, 1), -100, 8, 800)
	store.addSplit("ABC", day(2022, time.June, 1), 2)
	store.addPrice("ABC", day(2022, time.July, 1), 6)

	engine := newTestEngine(store, day(2022, time.December, 15))
	_, err := engine.RunAdjustmentPass()
	require.NoError(t, err)

	values, err := engine.DailyValue("USD")
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(1200).Equal(valueOn(t, values, day(2022, time.July, 1))),
		"200 adjusted shares at $6")
	assert.True(t, decimal.NewFromInt(600).Equal(valueOn(t, values, day(2022, time.December, 15))),
		"100 remaining shares at $6 after the sale")
}
