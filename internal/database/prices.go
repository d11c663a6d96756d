package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// CreatePricePoint inserts or updates a daily close price
func (db *DB) CreatePricePoint(p *models.PricePoint) error {
	query := `
		INSERT INTO price_history (symbol, date, close, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol, date) DO UPDATE SET close = EXCLUDED.close
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRow(query, p.Symbol, p.Date, p.Close, now).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create price point: %w", err)
	}
	p.CreatedAt = now
	return nil
}

// CreatePricePointBatch inserts multiple price points efficiently
func (db *DB) CreatePricePointBatch(prices []*models.PricePoint) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO price_history (symbol, date, close, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol, date) DO UPDATE SET close = EXCLUDED.close
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range prices {
		if _, err := stmt.Exec(p.Symbol, p.Date, p.Close, now); err != nil {
			return fmt.Errorf("failed to insert price point for %s: %w", p.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PriceSeries retrieves the full price history for a symbol, ascending by date
func (db *DB) PriceSeries(symbol string) ([]*models.PricePoint, error) {
	query := `
		SELECT id, symbol, date, close, created_at
		FROM price_history
		WHERE symbol = $1
		ORDER BY date ASC
	`
	rows, err := db.conn.Query(query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query price series: %w", err)
	}
	defer rows.Close()

	var prices []*models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Date, &p.Close, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		prices = append(prices, &p)
	}
	return prices, rows.Err()
}

// LatestPrice retrieves the most recent price point for a symbol
func (db *DB) LatestPrice(symbol string) (*models.PricePoint, error) {
	query := `
		SELECT id, symbol, date, close, created_at
		FROM price_history
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT 1
	`
	var p models.PricePoint
	err := db.conn.QueryRow(query, symbol).Scan(&p.ID, &p.Symbol, &p.Date, &p.Close, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no price data found for %s", symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}
	return &p, nil
}

// LatestPriceDate returns the date of the most recent stored price for a
// symbol, or nil when no prices exist yet
func (db *DB) LatestPriceDate(symbol string) (*time.Time, error) {
	var d sql.NullTime
	err := db.conn.QueryRow(`SELECT MAX(date) FROM price_history WHERE symbol = $1`, symbol).Scan(&d)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price date: %w", err)
	}
	if !d.Valid {
		return nil, nil
	}
	return &d.Time, nil
}
