package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// CreateSplitEvent inserts a split event, ignoring duplicates for the same
// symbol and effective date
func (db *DB) CreateSplitEvent(s *models.SplitEvent) error {
	query := `
		INSERT INTO split_events (symbol, effective_date, ratio, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol, effective_date) DO NOTHING
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRow(query, s.Symbol, s.EffectiveDate, s.Ratio, now).Scan(&s.ID)
	if err == sql.ErrNoRows {
		// Duplicate event, nothing inserted.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create split event: %w", err)
	}
	s.CreatedAt = now
	return nil
}

// CreateSplitEventBatch inserts multiple split events in one transaction
func (db *DB) CreateSplitEventBatch(splits []*models.SplitEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO split_events (symbol, effective_date, ratio, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol, effective_date) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, s := range splits {
		if _, err := stmt.Exec(s.Symbol, s.EffectiveDate, s.Ratio, now); err != nil {
			return fmt.Errorf("failed to insert split event for %s: %w", s.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SplitCountForSymbol returns the number of stored split events for a symbol
func (db *DB) SplitCountForSymbol(symbol string) (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM split_events WHERE symbol = $1`, symbol).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count split events: %w", err)
	}
	return count, nil
}

// ListSplits retrieves all split events ordered by effective date ascending.
// The ordering is load-bearing: the adjustment engine relies on it so split
// ratios compound correctly when a symbol has multiple splits.
func (db *DB) ListSplits() ([]*models.SplitEvent, error) {
	query := `
		SELECT id, symbol, effective_date, ratio, created_at
		FROM split_events
		ORDER BY effective_date ASC, id ASC
	`
	return db.scanSplits(db.conn.Query(query))
}

// ListSplitsBySymbol retrieves split events for one symbol, ascending by date
func (db *DB) ListSplitsBySymbol(symbol string) ([]*models.SplitEvent, error) {
	query := `
		SELECT id, symbol, effective_date, ratio, created_at
		FROM split_events
		WHERE symbol = $1
		ORDER BY effective_date ASC, id ASC
	`
	return db.scanSplits(db.conn.Query(query, symbol))
}

func (db *DB) scanSplits(rows *sql.Rows, err error) ([]*models.SplitEvent, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query split events: %w", err)
	}
	defer rows.Close()

	var splits []*models.SplitEvent
	for rows.Next() {
		var s models.SplitEvent
		if err := rows.Scan(&s.ID, &s.Symbol, &s.EffectiveDate, &s.Ratio, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan split event: %w", err)
		}
		splits = append(splits, &s)
	}
	return splits, rows.Err()
}
