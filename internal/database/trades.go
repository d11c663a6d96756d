package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rknair/portfolio-analytics/internal/models"
)

const tradeColumns = `id, asset_category, currency, symbol, executed_at, quantity, price,
	       close_price, proceeds, commission, basis, realized_pnl, mtm_pnl, code,
	       split_adjusted, created_at`

// CreateTrade inserts a new trade record
func (db *DB) CreateTrade(t *models.Trade) error {
	query := `
		INSERT INTO trades (
			asset_category, currency, symbol, executed_at, quantity, price,
			close_price, proceeds, commission, basis, realized_pnl, mtm_pnl, code,
			split_adjusted, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		RETURNING id
	`
	now := time.Now()

	err := db.conn.QueryRow(query,
		t.AssetCategory, t.Currency, t.Symbol, t.ExecutedAt, t.Quantity, t.Price,
		t.ClosePrice, t.Proceeds, t.Commission, t.Basis, t.RealizedPnl, t.MtmPnl, t.Code,
		t.SplitAdjusted, now,
	).Scan(&t.ID)

	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	t.CreatedAt = now
	return nil
}

// CreateTradeBatch inserts multiple trade records in one transaction
func (db *DB) CreateTradeBatch(trades []*models.Trade) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO trades (
			asset_category, currency, symbol, executed_at, quantity, price,
			close_price, proceeds, commission, basis, realized_pnl, mtm_pnl, code,
			split_adjusted, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, t := range trades {
		_, err := stmt.Exec(
			t.AssetCategory, t.Currency, t.Symbol, t.ExecutedAt, t.Quantity, t.Price,
			t.ClosePrice, t.Proceeds, t.Commission, t.Basis, t.RealizedPnl, t.MtmPnl, t.Code,
			t.SplitAdjusted, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert trade for %s: %w", t.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// TradeCount returns the total number of trades in the ledger
func (db *DB) TradeCount() (int, error) {
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

// ListTrades retrieves the full trade ledger in chronological order
func (db *DB) ListTrades() ([]*models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		ORDER BY executed_at ASC, id ASC
	`
	return db.scanTrades(db.conn.Query(query))
}

// ListTradesBySymbol retrieves all trades for a symbol in chronological order
func (db *DB) ListTradesBySymbol(symbol string) ([]*models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE symbol = $1
		ORDER BY executed_at ASC, id ASC
	`
	return db.scanTrades(db.conn.Query(query, symbol))
}

// UniqueTradeSymbols returns the distinct symbols present in the ledger
func (db *DB) UniqueTradeSymbols() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT symbol FROM trades ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// AdjustTradesForSplits applies a symbol's split events, given in ascending
// effective-date order, to its unadjusted trades. Each split rescales
// quantity and price of every unflagged trade executed strictly before its
// effective date, so ratios compound on trades that predate several splits.
// The adjusted flag is set once at the end, and the whole pass for the
// symbol commits in a single transaction so a partial ratio application is
// never observable. Flagged trades are structurally excluded and can never
// be rescaled again. Returns the number of trades adjusted.
func (db *DB) AdjustTradesForSplits(symbol string, splits []*models.SplitEvent) (int, error) {
	if len(splits) == 0 {
		return 0, nil
	}
	for _, s := range splits {
		if s.Ratio.LessThanOrEqual(decimal.Zero) {
			return 0, fmt.Errorf("invalid split ratio %s for %s", s.Ratio, symbol)
		}
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rescale := `
		UPDATE trades
		SET quantity = quantity * $1,
		    price = price / $1
		WHERE symbol = $2
		  AND executed_at::date < $3::date
		  AND split_adjusted = FALSE
	`
	for _, s := range splits {
		if _, err := tx.Exec(rescale, s.Ratio, symbol, s.EffectiveDate); err != nil {
			return 0, fmt.Errorf("failed to apply %s split for %s: %w", s.Ratio, symbol, err)
		}
	}

	// Every trade before the latest split date was rescaled by at least one
	// split above; flag them all in the same transaction.
	flag := `
		UPDATE trades
		SET split_adjusted = TRUE
		WHERE symbol = $1
		  AND executed_at::date < $2::date
		  AND split_adjusted = FALSE
	`
	res, err := tx.Exec(flag, symbol, splits[len(splits)-1].EffectiveDate)
	if err != nil {
		return 0, fmt.Errorf("failed to flag adjusted trades for %s: %w", symbol, err)
	}
	adjusted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count adjusted trades for %s: %w", symbol, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return int(adjusted), nil
}

func (db *DB) scanTrades(rows *sql.Rows, err error) ([]*models.Trade, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		var t models.Trade
		var assetCategory, code sql.NullString
		var closePrice, commission, basis, realizedPnl, mtmPnl sql.NullString

		err := rows.Scan(
			&t.ID, &assetCategory, &t.Currency, &t.Symbol, &t.ExecutedAt, &t.Quantity, &t.Price,
			&closePrice, &t.Proceeds, &commission, &basis, &realizedPnl, &mtmPnl, &code,
			&t.SplitAdjusted, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		if assetCategory.Valid {
			t.AssetCategory = assetCategory.String
		}
		if code.Valid {
			t.Code = code.String
		}
		if closePrice.Valid {
			t.ClosePrice, _ = decimal.NewFromString(closePrice.String)
		}
		if commission.Valid {
			t.Commission, _ = decimal.NewFromString(commission.String)
		}
		if basis.Valid {
			t.Basis, _ = decimal.NewFromString(basis.String)
		}
		if realizedPnl.Valid {
			t.RealizedPnl, _ = decimal.NewFromString(realizedPnl.String)
		}
		if mtmPnl.Valid {
			t.MtmPnl, _ = decimal.NewFromString(mtmPnl.String)
		}

		trades = append(trades, &t)
	}

	return trades, rows.Err()
}
