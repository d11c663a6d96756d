package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/rknair/portfolio-analytics/internal/config"
	"github.com/rknair/portfolio-analytics/internal/models"
)

// YahooClient fetches historical prices, FX rates and split events from the
// Yahoo Finance chart API. FX pairs are requested with Yahoo's "=X" suffix
// but stored under the plain pair code.
type YahooClient struct {
	client *resty.Client
}

// NewYahooClient creates a Yahoo Finance client
func NewYahooClient(cfg *config.Config) *YahooClient {
	client := resty.New().
		SetDebug(cfg.MarketData.Debug).
		SetTimeout(cfg.MarketData.Timeout).
		SetBaseURL(cfg.MarketData.BaseURL).
		SetHeader("User-Agent", "Mozilla/5.0")
	return &YahooClient{client: client}
}

// chartResponse is the Yahoo Finance chart API payload
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
			Events struct {
				Splits map[string]struct {
					Date        int64   `json:"date"`
					Numerator   float64 `json:"numerator"`
					Denominator float64 `json:"denominator"`
					SplitRatio  string  `json:"splitRatio"`
				} `json:"splits"`
			} `json:"events"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *YahooClient) fetchChart(ctx context.Context, symbol string, params map[string]string) (*chartResponse, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get("/v8/finance/chart/" + url.PathEscape(symbol))
	if err != nil {
		return nil, fmt.Errorf("chart request for %s: %w", symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("chart request for %s: status %d", symbol, resp.StatusCode())
	}

	var chart chartResponse
	if err := json.Unmarshal(resp.Body(), &chart); err != nil {
		return nil, fmt.Errorf("chart decode for %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart api error for %s: %s", symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart api returned no result for %s", symbol)
	}
	return &chart, nil
}

// FetchDailyCloses returns daily close prices for a symbol between start and
// end, inclusive
func (c *YahooClient) FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]*models.PricePoint, error) {
	chart, err := c.fetchChart(ctx, symbol, map[string]string{
		"interval": "1d",
		"period1":  fmt.Sprintf("%d", start.Unix()),
		"period2":  fmt.Sprintf("%d", end.AddDate(0, 0, 1).Unix()),
	})
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	closes := result.Indicators.Quote[0].Close

	points := make([]*models.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // null bars on holidays
		}
		points = append(points, &models.PricePoint{
			Symbol: symbol,
			Date:   time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close:  decimal.NewFromFloat(*closes[i]),
		})
	}
	return points, nil
}

// FetchRates returns daily FX rates for a pair (e.g. "USDINR") between start
// and end, inclusive
func (c *YahooClient) FetchRates(ctx context.Context, pair string, start, end time.Time) ([]*models.FxRate, error) {
	chart, err := c.fetchChart(ctx, pair+"=X", map[string]string{
		"interval": "1d",
		"period1":  fmt.Sprintf("%d", start.Unix()),
		"period2":  fmt.Sprintf("%d", end.AddDate(0, 0, 1).Unix()),
	})
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	closes := result.Indicators.Quote[0].Close

	rates := make([]*models.FxRate, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		rates = append(rates, &models.FxRate{
			Pair: pair,
			Date: time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Rate: decimal.NewFromFloat(*closes[i]),
		})
	}
	return rates, nil
}

// FetchSplits returns the full split history for a symbol
func (c *YahooClient) FetchSplits(ctx context.Context, symbol string) ([]*models.SplitEvent, error) {
	chart, err := c.fetchChart(ctx, symbol, map[string]string{
		"interval": "1d",
		"range":    "10y",
		"events":   "splits",
	})
	if err != nil {
		return nil, err
	}

	raw := chart.Chart.Result[0].Events.Splits
	splits := make([]*models.SplitEvent, 0, len(raw))
	for _, s := range raw {
		if s.Denominator == 0 {
			continue
		}
		ratio := decimal.NewFromFloat(s.Numerator).Div(decimal.NewFromFloat(s.Denominator))
		splits = append(splits, &models.SplitEvent{
			Symbol:        symbol,
			EffectiveDate: time.Unix(s.Date, 0).UTC().Truncate(24 * time.Hour),
			Ratio:         ratio,
		})
	}
	return splits, nil
}
