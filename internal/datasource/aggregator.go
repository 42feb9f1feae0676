package datasource

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockscore/pkg/models"
)

// Snapshot is everything fetched for one ticker.
type Snapshot struct {
	Ticker       string               `json:"ticker"`
	Fundamentals *models.Fundamentals `json:"fundamentals"`
	History      []models.OHLCV       `json:"history,omitempty"`
	Headlines    []models.NewsArticle `json:"headlines,omitempty"`
	Warnings     []string             `json:"warnings,omitempty"`
	FetchedAt    time.Time            `json:"fetched_at"`
}

// Aggregator fetches fundamentals, history and headlines concurrently and
// fills ratio gaps from fallback sources.
type Aggregator struct {
	primary       FundamentalsSource
	fallbacks     []FundamentalsSource
	history       HistorySource
	news          HeadlineSource
	headlineLimit int
}

// AggregatorOption customises an Aggregator.
type AggregatorOption func(*Aggregator)

// WithFallback adds a fundamentals source consulted for missing ratios.
func WithFallback(src FundamentalsSource) AggregatorOption {
	return func(a *Aggregator) { a.fallbacks = append(a.fallbacks, src) }
}

// WithNews sets the headline source and how many headlines to keep.
func WithNews(src HeadlineSource, limit int) AggregatorOption {
	return func(a *Aggregator) {
		a.news = src
		a.headlineLimit = limit
	}
}

// NewAggregator creates an aggregator over a primary fundamentals source
// and a history source.
func NewAggregator(primary FundamentalsSource, history HistorySource, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{primary: primary, history: history, headlineLimit: 5}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewDefaultAggregator wires Yahoo Finance as primary and history source,
// Screener.in as fallback when screenerFallback is set, and the RSS
// headline feed.
func NewDefaultAggregator(opts Options, screenerFallback bool, headlineLimit int) *Aggregator {
	yf := NewYFinance(opts)
	aggOpts := []AggregatorOption{WithNews(NewNews(opts), headlineLimit)}
	if screenerFallback {
		aggOpts = append(aggOpts, WithFallback(NewScreener(opts)))
	}
	return NewAggregator(yf, yf, aggOpts...)
}

// FetchSnapshot fetches everything for ticker in parallel. Missing price
// history fails the snapshot with ErrNoHistory; headline and fallback
// failures are recorded as warnings.
func (a *Aggregator) FetchSnapshot(ctx context.Context, ticker, period string) (*Snapshot, error) {
	snap := &Snapshot{Ticker: ticker, FetchedAt: time.Now()}

	var mu sync.Mutex
	warn := func(msg string, err error) {
		zap.L().Warn(msg, zap.String("ticker", ticker), zap.Error(err))
		mu.Lock()
		snap.Warnings = append(snap.Warnings, msg+": "+err.Error())
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	// 1. Price history: the original dashboard refuses to rate a symbol
	// with no history.
	g.Go(func() error {
		bars, err := a.history.GetHistory(gctx, ticker, period)
		if err != nil {
			return err
		}
		snap.History = bars
		return nil
	})

	// 2. Fundamentals, primary then fallbacks.
	g.Go(func() error {
		f, err := a.FetchFundamentals(gctx, ticker)
		if err != nil {
			return err
		}
		snap.Fundamentals = f
		return nil
	})

	// 3. Headlines (non-fatal).
	if a.news != nil && a.headlineLimit > 0 {
		g.Go(func() error {
			items, err := a.news.GetHeadlines(gctx, ticker, a.headlineLimit)
			if err != nil {
				warn("headlines unavailable", err)
				return nil
			}
			mu.Lock()
			snap.Headlines = items
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrapf(err, "fetch snapshot %s", ticker)
	}
	return snap, nil
}

// FetchFundamentals asks the primary source, then merges any fallback that
// can fill missing ratios. It fails only when no source returns data. The
// result is always a fresh copy the caller may modify.
func (a *Aggregator) FetchFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	f, primaryErr := a.primary.GetFundamentals(ctx, ticker)
	if primaryErr == nil && !missingRatios(f) {
		return f, nil
	}
	f = f.Clone()

	for _, fb := range a.fallbacks {
		extra, err := fb.GetFundamentals(ctx, ticker)
		if err != nil {
			if !eris.Is(err, ErrNotSupported) {
				zap.L().Warn("fallback fundamentals failed",
					zap.String("ticker", ticker),
					zap.String("source", fb.Name()),
					zap.Error(err),
				)
			}
			continue
		}
		if f == nil {
			f = extra.Clone()
			continue
		}
		f.Merge(extra)
	}

	if f == nil {
		return nil, primaryErr
	}
	return f, nil
}

// missingRatios reports whether any ratio a fallback could supply is nil.
func missingRatios(f *models.Fundamentals) bool {
	return f.TrailingPE == nil || f.PriceToBook == nil || f.ReturnOnEquity == nil ||
		f.DebtToEquity == nil || f.CurrentRatio == nil
}
