package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockscore/internal/datasource"
	"github.com/seenimoa/stockscore/internal/llm"
	"github.com/seenimoa/stockscore/internal/rating"
	"github.com/seenimoa/stockscore/pkg/models"
	"github.com/seenimoa/stockscore/pkg/utils"
)

// FundProfileName is picked automatically for ETFs and mutual funds when a
// request names no profile.
const FundProfileName = "fund"

// SnapshotFetcher supplies the market data for one ticker.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, ticker, period string) (*datasource.Snapshot, error)
}

// Request describes one analysis run.
type Request struct {
	Ticker        string `json:"ticker"`
	Profile       string `json:"profile,omitempty"`
	Narrative     bool   `json:"narrative,omitempty"`
	HistoryPeriod string `json:"history_period,omitempty"`
}

// Analysis is the full outcome for one ticker.
type Analysis struct {
	ID        string `json:"id"`
	Ticker    string `json:"ticker"`
	Name      string `json:"name,omitempty"`
	Sector    string `json:"sector,omitempty"`
	Industry  string `json:"industry,omitempty"`
	QuoteType string `json:"quote_type,omitempty"`
	Currency  string `json:"currency,omitempty"`

	Composite rating.Composite `json:"composite"`
	// Context holds ratings for available metrics the profile does not
	// score, such as forward P/E.
	Context []rating.Result `json:"context,omitempty"`

	Price     *models.PriceSummary `json:"price,omitempty"`
	History   []models.OHLCV       `json:"history,omitempty"`
	Headlines []models.NewsArticle `json:"headlines,omitempty"`

	Narrative      *llm.Narrative `json:"narrative,omitempty"`
	NarrativeError string         `json:"narrative_error,omitempty"`

	Warnings  []string      `json:"warnings,omitempty"`
	Sources   []string      `json:"sources,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration"`
}

// Verdict is shorthand for a.Composite.Verdict.
func (a *Analysis) Verdict() rating.Verdict { return a.Composite.Verdict }

// Analyzer orchestrates fetch, scoring and narrative for analysis requests.
// It holds no per-request state and is safe for concurrent use.
type Analyzer struct {
	engine      *rating.Engine
	fetcher     SnapshotFetcher
	narrator    llm.Narrator
	period      string
	concurrency int
	observers   []func(*Analysis)
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithNarrator sets the narrative backend. Without one, narrative requests
// record llm.ErrNoProviders as the narrative error.
func WithNarrator(n llm.Narrator) Option {
	return func(a *Analyzer) { a.narrator = n }
}

// WithHistoryPeriod sets the default price history range, e.g. "6mo".
func WithHistoryPeriod(period string) Option {
	return func(a *Analyzer) { a.period = period }
}

// WithConcurrency bounds the number of tickers AnalyzeMany runs at once.
func WithConcurrency(n int) Option {
	return func(a *Analyzer) { a.concurrency = n }
}

// WithObserver registers a callback invoked after every successful analysis.
func WithObserver(fn func(*Analysis)) Option {
	return func(a *Analyzer) { a.observers = append(a.observers, fn) }
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(engine *rating.Engine, fetcher SnapshotFetcher, opts ...Option) *Analyzer {
	a := &Analyzer{
		engine:      engine,
		fetcher:     fetcher,
		period:      "6mo",
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.concurrency < 1 {
		a.concurrency = 1
	}
	return a
}

// Engine returns the rating engine the analyzer scores with.
func (a *Analyzer) Engine() *rating.Engine { return a.engine }

// Analyze fetches, scores and optionally narrates one ticker. A narrative
// failure never fails the analysis; it is recorded in NarrativeError.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	start := time.Now()

	ticker, err := utils.NormalizeTicker(req.Ticker)
	if err != nil {
		return nil, err
	}

	// Resolve an explicit profile before any network work.
	if req.Profile != "" {
		if _, err := a.engine.Profile(req.Profile); err != nil {
			return nil, err
		}
	}

	period := req.HistoryPeriod
	if period == "" {
		period = a.period
	}

	snap, err := a.fetcher.FetchSnapshot(ctx, ticker, period)
	if err != nil {
		return nil, err
	}

	f := snap.Fundamentals
	if f == nil {
		f = &models.Fundamentals{Ticker: ticker}
	}
	profile, err := a.selectProfile(req.Profile, f)
	if err != nil {
		return nil, err
	}

	readings := ExtractReadings(f)
	comp, err := a.engine.Score(profile, readings)
	if err != nil {
		return nil, eris.Wrapf(err, "score %s", ticker)
	}

	ctxResults, err := a.contextResults(profile, readings)
	if err != nil {
		return nil, eris.Wrapf(err, "rate context metrics %s", ticker)
	}

	out := &Analysis{
		ID:        uuid.NewString(),
		Ticker:    ticker,
		Name:      f.Name,
		Sector:    f.Sector,
		Industry:  f.Industry,
		QuoteType: f.QuoteType,
		Currency:  f.Currency,
		Composite: comp,
		Context:   ctxResults,
		Price:     models.SummarizePrices(snap.History),
		History:   snap.History,
		Headlines: snap.Headlines,
		Warnings:  snap.Warnings,
		Sources:   f.Sources,
		CreatedAt: start,
	}

	if req.Narrative {
		a.narrate(ctx, out)
	}

	out.Duration = time.Since(start)

	zap.L().Info("analysis complete",
		zap.String("id", out.ID),
		zap.String("ticker", ticker),
		zap.String("profile", comp.Profile),
		zap.Int("score", comp.Score),
		zap.Int("max", comp.Max),
		zap.String("tier", string(comp.Verdict.Tier)),
		zap.Duration("duration", out.Duration),
	)

	for _, fn := range a.observers {
		fn(out)
	}
	return out, nil
}

// BatchResult is one ticker's outcome in AnalyzeMany.
type BatchResult struct {
	Ticker   string    `json:"ticker"`
	Analysis *Analysis `json:"analysis,omitempty"`
	Error    string    `json:"error,omitempty"`
	Err      error     `json:"-"`
}

// AnalyzeMany runs Analyze for every ticker with bounded concurrency.
// Results keep the input order; per-ticker failures are reported in the
// result rather than aborting the batch.
func (a *Analyzer) AnalyzeMany(ctx context.Context, tickers []string, tmpl Request) []BatchResult {
	results := make([]BatchResult, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, t := range tickers {
		g.Go(func() error {
			req := tmpl
			req.Ticker = t

			res := BatchResult{Ticker: strings.ToUpper(strings.TrimSpace(t))}
			an, err := a.Analyze(gctx, req)
			if err != nil {
				zap.L().Warn("watchlist analysis failed", zap.String("ticker", t), zap.Error(err))
				res.Err = err
				res.Error = err.Error()
			} else {
				res.Analysis = an
				res.Ticker = an.Ticker
			}
			results[i] = res
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// --- Internal helpers ---

// selectProfile honours an explicit profile name, otherwise picks the fund
// profile for ETFs and mutual funds, otherwise the engine default.
func (a *Analyzer) selectProfile(name string, f *models.Fundamentals) (rating.Profile, error) {
	if name == "" && f.IsFund() {
		if p, err := a.engine.Profile(FundProfileName); err == nil {
			return p, nil
		}
	}
	return a.engine.Profile(name)
}

// contextResults rates every available metric the profile does not score.
func (a *Analyzer) contextResults(p rating.Profile, readings rating.Readings) ([]rating.Result, error) {
	var out []rating.Result
	for _, m := range rating.Metrics() {
		r, ok := readings[m]
		if !ok || p.Includes(m) || !r.Available() {
			continue
		}
		res, err := a.engine.Rate(r, p)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (a *Analyzer) narrate(ctx context.Context, out *Analysis) {
	if a.narrator == nil {
		out.NarrativeError = llm.ErrNoProviders.Error()
		return
	}

	prompt := llm.BuildPrompt(llm.PromptData{
		Ticker:    out.Ticker,
		Name:      out.Name,
		Sector:    out.Sector,
		Composite: out.Composite,
		Context:   out.Context,
		Price:     out.Price,
		Currency:  out.Currency,
		Headlines: out.Headlines,
	})

	nar, err := a.narrator.Narrate(ctx, prompt)
	if err != nil {
		zap.L().Warn("narrative failed", zap.String("ticker", out.Ticker), zap.Error(err))
		out.NarrativeError = err.Error()
		return
	}
	out.Narrative = nar
}
