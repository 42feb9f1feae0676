package analysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/stockscore/internal/datasource"
	"github.com/seenimoa/stockscore/internal/llm"
	"github.com/seenimoa/stockscore/internal/rating"
	"github.com/seenimoa/stockscore/pkg/models"
	"github.com/seenimoa/stockscore/pkg/utils"
)

// ── Fakes ──

type fakeFetcher struct {
	mu      sync.Mutex
	snaps   map[string]*datasource.Snapshot
	periods []string
}

func (f *fakeFetcher) FetchSnapshot(_ context.Context, ticker, period string) (*datasource.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.periods = append(f.periods, period)
	s, ok := f.snaps[ticker]
	if !ok {
		return nil, eris.Wrapf(datasource.ErrTickerNotFound, "ticker %s", ticker)
	}
	return s, nil
}

type fakeNarrator struct {
	err    error
	prompt llm.Prompt
}

func (n *fakeNarrator) Name() string { return "fake" }

func (n *fakeNarrator) Narrate(_ context.Context, p llm.Prompt) (*llm.Narrative, error) {
	n.prompt = p
	if n.err != nil {
		return nil, n.err
	}
	return &llm.Narrative{Text: "solid business", Provider: "fake"}, nil
}

func f64(v float64) *float64 { return &v }

func techSnapshot() *datasource.Snapshot {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	return &datasource.Snapshot{
		Ticker: "AAPL",
		Fundamentals: &models.Fundamentals{
			Ticker:         "AAPL",
			Name:           "Apple Inc.",
			QuoteType:      "EQUITY",
			Sector:         "Technology",
			Currency:       "USD",
			TrailingPE:     f64(15),
			ForwardPE:      f64(12),
			PriceToSales:   f64(3),
			PriceToBook:    f64(10),
			ReturnOnEquity: f64(0.25),
			DebtToEquity:   f64(120),
			CurrentRatio:   f64(1.2),
			ProfitMargin:   f64(0.24),
			Sources:        []string{"yahoo"},
		},
		History: []models.OHLCV{
			{Timestamp: day, Close: 100},
			{Timestamp: day.AddDate(0, 0, 1), Close: 110},
		},
		Headlines: []models.NewsArticle{{Title: "Apple ships a thing"}},
		Warnings:  []string{"headlines: partial"},
	}
}

func fundSnapshot() *datasource.Snapshot {
	return &datasource.Snapshot{
		Ticker: "VOO",
		Fundamentals: &models.Fundamentals{
			Ticker:       "VOO",
			QuoteType:    "ETF",
			TrailingPE:   f64(25),
			PriceToBook:  f64(3),
			ExpenseRatio: f64(0.0003),
		},
	}
}

func newTestAnalyzer(opts ...Option) (*Analyzer, *fakeFetcher) {
	ff := &fakeFetcher{snaps: map[string]*datasource.Snapshot{
		"AAPL": techSnapshot(),
		"VOO":  fundSnapshot(),
	}}
	return NewAnalyzer(rating.NewEngine(), ff, opts...), ff
}

// ── ExtractReadings ──

func TestExtractReadingsUnits(t *testing.T) {
	rs := ExtractReadings(techSnapshot().Fundamentals)

	assert.InDelta(t, 25.0, *rs[rating.MetricROE].Value, 1e-9)
	assert.InDelta(t, 1.2, *rs[rating.MetricDebt].Value, 1e-9)
	assert.InDelta(t, 24.0, *rs[rating.MetricMargin].Value, 1e-9)
	assert.Equal(t, "Technology", rs[rating.MetricPB].Sector)
	assert.Nil(t, rs[rating.MetricExpense].Value)
}

func TestExtractReadingsNil(t *testing.T) {
	assert.Empty(t, ExtractReadings(nil))
}

// ── Analyze ──

func TestAnalyzeDefaultProfile(t *testing.T) {
	a, ff := newTestAnalyzer()

	out, err := a.Analyze(context.Background(), Request{Ticker: " aapl "})
	require.NoError(t, err)

	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "AAPL", out.Ticker)
	assert.Equal(t, "Apple Inc.", out.Name)
	assert.Equal(t, "five", out.Composite.Profile)
	// PE 20 + PS 10 + tech PB 20 + ROE 20 + D/E 10
	assert.Equal(t, 80, out.Composite.Score)
	assert.Equal(t, 100, out.Composite.Max)
	assert.Equal(t, rating.TierStrongBuy, out.Verdict().Tier)

	pb, ok := out.Composite.Result(rating.MetricPB)
	require.True(t, ok)
	assert.Equal(t, "Tech Value", pb.Label.Text)

	require.Len(t, out.Context, 3)
	assert.Equal(t, rating.MetricPEForward, out.Context[0].Metric)
	assert.Equal(t, rating.MetricCurrent, out.Context[1].Metric)
	assert.Equal(t, rating.MetricMargin, out.Context[2].Metric)
	assert.Zero(t, out.Context[0].Max)

	require.NotNil(t, out.Price)
	assert.InDelta(t, 10.0, out.Price.ChangePct, 1e-9)
	assert.Len(t, out.History, 2)
	assert.Len(t, out.Headlines, 1)
	assert.Equal(t, []string{"headlines: partial"}, out.Warnings)
	assert.Equal(t, []string{"6mo"}, ff.periods)
	assert.Nil(t, out.Narrative)
	assert.Empty(t, out.NarrativeError)
}

func TestAnalyzeFundAutoProfile(t *testing.T) {
	a, _ := newTestAnalyzer()

	out, err := a.Analyze(context.Background(), Request{Ticker: "VOO"})
	require.NoError(t, err)
	assert.Equal(t, "fund", out.Composite.Profile)
	// expense 34 + PE 15 + PB 15
	assert.Equal(t, 64, out.Composite.Score)
	assert.Equal(t, rating.TierHold, out.Verdict().Tier)
	assert.Nil(t, out.Price)
}

func TestAnalyzeExplicitProfileWinsForFunds(t *testing.T) {
	a, _ := newTestAnalyzer()

	out, err := a.Analyze(context.Background(), Request{Ticker: "VOO", Profile: "three"})
	require.NoError(t, err)
	assert.Equal(t, "three", out.Composite.Profile)
}

func TestAnalyzeUnknownProfile(t *testing.T) {
	a, ff := newTestAnalyzer()

	_, err := a.Analyze(context.Background(), Request{Ticker: "AAPL", Profile: "nope"})
	assert.ErrorIs(t, err, rating.ErrUnknownProfile)
	assert.Empty(t, ff.periods, "profile is validated before fetching")
}

func TestAnalyzeInvalidTicker(t *testing.T) {
	a, _ := newTestAnalyzer()

	_, err := a.Analyze(context.Background(), Request{Ticker: "not a ticker!"})
	assert.ErrorIs(t, err, utils.ErrInvalidTicker)
}

func TestAnalyzeFetchError(t *testing.T) {
	a, _ := newTestAnalyzer()

	_, err := a.Analyze(context.Background(), Request{Ticker: "MSFT"})
	assert.ErrorIs(t, err, datasource.ErrTickerNotFound)
}

func TestAnalyzeHistoryPeriod(t *testing.T) {
	a, ff := newTestAnalyzer(WithHistoryPeriod("1y"))

	_, err := a.Analyze(context.Background(), Request{Ticker: "AAPL"})
	require.NoError(t, err)
	_, err = a.Analyze(context.Background(), Request{Ticker: "AAPL", HistoryPeriod: "5d"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1y", "5d"}, ff.periods)
}

func TestAnalyzeMissingFundamentals(t *testing.T) {
	a, ff := newTestAnalyzer()
	ff.snaps["EMPTY"] = &datasource.Snapshot{Ticker: "EMPTY"}

	out, err := a.Analyze(context.Background(), Request{Ticker: "EMPTY"})
	require.NoError(t, err)
	assert.Zero(t, out.Composite.Score)
	assert.Equal(t, rating.TierAvoid, out.Verdict().Tier)
	for _, r := range out.Composite.Results {
		assert.Equal(t, rating.GradeNeutral, r.Grade)
	}
}

// ── Narrative ──

func TestAnalyzeNarrative(t *testing.T) {
	n := &fakeNarrator{}
	a, _ := newTestAnalyzer(WithNarrator(n))

	out, err := a.Analyze(context.Background(), Request{Ticker: "AAPL", Narrative: true})
	require.NoError(t, err)
	require.NotNil(t, out.Narrative)
	assert.Equal(t, "solid business", out.Narrative.Text)
	assert.Contains(t, n.prompt.User, "AAPL")
	assert.Contains(t, n.prompt.User, "Composite score: 80/100")
}

func TestAnalyzeNarrativeFailureIsSoft(t *testing.T) {
	n := &fakeNarrator{err: llm.ErrRateLimit}
	a, _ := newTestAnalyzer(WithNarrator(n))

	out, err := a.Analyze(context.Background(), Request{Ticker: "AAPL", Narrative: true})
	require.NoError(t, err)
	assert.Nil(t, out.Narrative)
	assert.Equal(t, llm.ErrRateLimit.Error(), out.NarrativeError)
	assert.Equal(t, 80, out.Composite.Score)
}

func TestAnalyzeNarrativeWithoutNarrator(t *testing.T) {
	a, _ := newTestAnalyzer()

	out, err := a.Analyze(context.Background(), Request{Ticker: "AAPL", Narrative: true})
	require.NoError(t, err)
	assert.Equal(t, llm.ErrNoProviders.Error(), out.NarrativeError)
}

// ── Observers and batches ──

func TestObserverCalled(t *testing.T) {
	var seen []string
	a, _ := newTestAnalyzer(WithObserver(func(an *Analysis) { seen = append(seen, an.Ticker) }))

	_, err := a.Analyze(context.Background(), Request{Ticker: "AAPL"})
	require.NoError(t, err)
	_, err = a.Analyze(context.Background(), Request{Ticker: "MSFT"})
	require.Error(t, err)
	assert.Equal(t, []string{"AAPL"}, seen)
}

func TestAnalyzeMany(t *testing.T) {
	a, _ := newTestAnalyzer(WithConcurrency(2))

	results := a.AnalyzeMany(context.Background(), []string{"aapl", "MSFT", "VOO"}, Request{})
	require.Len(t, results, 3)

	assert.Equal(t, "AAPL", results[0].Ticker)
	require.NotNil(t, results[0].Analysis)
	assert.Equal(t, 80, results[0].Analysis.Composite.Score)

	assert.Equal(t, "MSFT", results[1].Ticker)
	assert.Nil(t, results[1].Analysis)
	assert.ErrorIs(t, results[1].Err, datasource.ErrTickerNotFound)
	assert.NotEmpty(t, results[1].Error)

	require.NotNil(t, results[2].Analysis)
	assert.Equal(t, "fund", results[2].Analysis.Composite.Profile)
}

func TestAnalyzeManyAppliesTemplate(t *testing.T) {
	a, _ := newTestAnalyzer()

	results := a.AnalyzeMany(context.Background(), []string{"AAPL", "VOO"}, Request{Profile: "four"})
	for _, r := range results {
		require.NotNil(t, r.Analysis)
		assert.Equal(t, "four", r.Analysis.Composite.Profile)
	}
}
