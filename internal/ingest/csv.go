package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rknair/portfolio-analytics/internal/models"
)

// Broker activity statements put the row kind in this column; only "Data"
// rows are actual executions (headers, subtotals and totals share the file).
const dataDiscriminator = "DataDiscriminator"

var dateTimeLayouts = []string{
	"2006-01-02, 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadTradeFiles reads and cleans trades from multiple activity-statement
// CSV files and consolidates them in chronological order. A missing or
// unreadable file is logged and skipped; it does not abort the other files.
func LoadTradeFiles(paths []string) []*models.Trade {
	var all []*models.Trade

	for _, path := range paths {
		trades, err := loadFile(path)
		if err != nil {
			slog.Error("failed to load trade file, skipping",
				slog.String("path", path), slog.String("err", err.Error()))
			continue
		}
		slog.Info("loaded trades from file",
			slog.String("path", path), slog.Int("count", len(trades)))
		all = append(all, trades...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ExecutedAt.Before(all[j].ExecutedAt)
	})
	return all
}

func loadFile(path string) ([]*models.Trade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseTrades(f)
}

// ParseTrades reads activity-statement CSV rows and returns the cleaned
// trades. Rows that are not data rows, or whose essential fields cannot be
// parsed, are dropped.
func ParseTrades(r io.Reader) ([]*models.Trade, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // statements mix sections of different widths

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col[dataDiscriminator]; !ok {
		return nil, fmt.Errorf("csv is missing the %s column", dataDiscriminator)
	}

	var trades []*models.Trade
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			slog.Warn("skipping malformed csv row", slog.Int("line", line), slog.String("err", err.Error()))
			continue
		}

		if field(record, col, dataDiscriminator) != "Data" {
			continue
		}

		trade, err := parseRow(record, col)
		if err != nil {
			slog.Warn("dropping unparseable trade row", slog.Int("line", line), slog.String("err", err.Error()))
			continue
		}
		trades = append(trades, trade)
	}

	return trades, nil
}

func parseRow(record []string, col map[string]int) (*models.Trade, error) {
	symbol := field(record, col, "Symbol")
	if symbol == "" {
		return nil, fmt.Errorf("missing symbol")
	}

	executedAt, err := parseDateTime(field(record, col, "Date/Time"))
	if err != nil {
		return nil, err
	}

	quantity, err := parseNumber(field(record, col, "Quantity"))
	if err != nil {
		return nil, fmt.Errorf("bad quantity: %w", err)
	}

	price, err := parseNumber(field(record, col, "T. Price"))
	if err != nil {
		return nil, fmt.Errorf("bad price: %w", err)
	}

	trade := &models.Trade{
		AssetCategory: field(record, col, "Asset Category"),
		Currency:      field(record, col, "Currency"),
		Symbol:        symbol,
		ExecutedAt:    executedAt,
		Quantity:      quantity,
		Price:         price,
		Code:          field(record, col, "Code"),
	}

	// Optional money columns; blank or junk values stay zero.
	trade.ClosePrice = parseOptional(field(record, col, "C. Price"))
	trade.Proceeds = parseOptional(field(record, col, "Proceeds"))
	trade.Commission = parseOptional(field(record, col, "Comm/Fee"))
	trade.Basis = parseOptional(field(record, col, "Basis"))
	trade.RealizedPnl = parseOptional(field(record, col, "Realized P/L"))
	trade.MtmPnl = parseOptional(field(record, col, "MTM P/L"))

	return trade, nil
}

func field(record []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseNumber parses a statement number, tolerating thousands separators
// like "2,500"
func parseNumber(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}
	return decimal.NewFromString(s)
}

func parseOptional(s string) decimal.Decimal {
	d, err := parseNumber(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDateTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date/time")
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date/time %q", s)
}
