// Package datasource fetches the market data stockscore rates: ratio
// snapshots from Yahoo Finance (with a Screener.in fallback for Indian
// listings), daily price history and ticker headlines.
package datasource

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/seenimoa/stockscore/internal/infra"
	"github.com/seenimoa/stockscore/pkg/models"
)

// FundamentalsSource returns a ratio snapshot for a ticker.
type FundamentalsSource interface {
	Name() string
	GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error)
}

// HistorySource returns daily bars for a ticker over a Yahoo-style range
// such as "6mo" or "1y".
type HistorySource interface {
	GetHistory(ctx context.Context, ticker, period string) ([]models.OHLCV, error)
}

// HeadlineSource returns recent headlines for a ticker.
type HeadlineSource interface {
	GetHeadlines(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error)
}

// --- Sentinel errors ---

// ErrNotSupported is returned when a source cannot serve a ticker.
var ErrNotSupported = eris.New("operation not supported by this data source")

// ErrTickerNotFound is returned when a ticker cannot be resolved.
var ErrTickerNotFound = eris.New("ticker not found")

// ErrNoHistory is returned when a ticker resolves but has no price history.
var ErrNoHistory = eris.New("could not find data for this symbol")

// ErrRateLimited is returned when a source rate-limits the request.
var ErrRateLimited = eris.New("rate limited by data source")

// Options configures the HTTP-backed sources.
type Options struct {
	YahooBaseURL      string
	ScreenerBaseURL   string
	NewsFeedURL       string // %s is replaced by the escaped ticker
	RequestsPerSecond float64
	CacheTTL          time.Duration
	Timeout           time.Duration
}

// classifyHTTP maps upstream status codes onto the package sentinels.
func classifyHTTP(err error, ticker string) error {
	switch infra.StatusCode(err) {
	case http.StatusNotFound:
		return eris.Wrapf(ErrTickerNotFound, "%s", ticker)
	case http.StatusTooManyRequests:
		return eris.Wrapf(ErrRateLimited, "%s", ticker)
	}
	return err
}
