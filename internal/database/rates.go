package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// CreateFxRate inserts or updates a daily exchange rate
func (db *DB) CreateFxRate(r *models.FxRate) error {
	query := `
		INSERT INTO fx_rates (pair, date, rate, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (pair, date) DO UPDATE SET rate = EXCLUDED.rate
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRow(query, r.Pair, r.Date, r.Rate, now).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to create fx rate: %w", err)
	}
	r.CreatedAt = now
	return nil
}

// CreateFxRateBatch inserts multiple exchange rates efficiently
func (db *DB) CreateFxRateBatch(rates []*models.FxRate) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO fx_rates (pair, date, rate, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (pair, date) DO UPDATE SET rate = EXCLUDED.rate
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, r := range rates {
		if _, err := stmt.Exec(r.Pair, r.Date, r.Rate, now); err != nil {
			return fmt.Errorf("failed to insert fx rate for %s: %w", r.Pair, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RateSeries retrieves the full rate history for a pair, ascending by date
func (db *DB) RateSeries(pair string) ([]*models.FxRate, error) {
	query := `
		SELECT id, pair, date, rate, created_at
		FROM fx_rates
		WHERE pair = $1
		ORDER BY date ASC
	`
	rows, err := db.conn.Query(query, pair)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate series: %w", err)
	}
	defer rows.Close()

	var rates []*models.FxRate
	for rows.Next() {
		var r models.FxRate
		if err := rows.Scan(&r.ID, &r.Pair, &r.Date, &r.Rate, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fx rate: %w", err)
		}
		rates = append(rates, &r)
	}
	return rates, rows.Err()
}

// LatestRateDate returns the date of the most recent stored rate for a pair,
// or nil when no rates exist yet
func (db *DB) LatestRateDate(pair string) (*time.Time, error) {
	var d sql.NullTime
	err := db.conn.QueryRow(`SELECT MAX(date) FROM fx_rates WHERE pair = $1`, pair).Scan(&d)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest rate date: %w", err)
	}
	if !d.Valid {
		return nil, nil
	}
	return &d.Time, nil
}
