package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/seenimoa/stockscore/internal/infra"
	"github.com/seenimoa/stockscore/pkg/models"
)

// quoteSummaryModules are the Yahoo modules that carry every rated ratio.
const quoteSummaryModules = "summaryDetail,defaultKeyStatistics,financialData,assetProfile,price,fundProfile"

// YFinance implements FundamentalsSource and HistorySource using the
// Yahoo Finance quoteSummary and chart APIs.
type YFinance struct {
	baseURL   string
	fetch     *infra.Fetcher
	fundCache *infra.Cache[*models.Fundamentals]
	histCache *infra.Cache[[]models.OHLCV]
}

// NewYFinance creates a new Yahoo Finance data source.
func NewYFinance(opts Options) *YFinance {
	base := strings.TrimRight(opts.YahooBaseURL, "/")
	if base == "" {
		base = "https://query1.finance.yahoo.com"
	}
	return &YFinance{
		baseURL:   base,
		fetch:     infra.NewFetcher(opts.Timeout, opts.RequestsPerSecond),
		fundCache: infra.NewCache[*models.Fundamentals](opts.CacheTTL),
		histCache: infra.NewCache[[]models.OHLCV](opts.CacheTTL),
	}
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "yahoo" }

// --- Yahoo Finance API types ---

type yfFinVal struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yfSummaryResponse struct {
	QuoteSummary struct {
		Result []yfSummaryResult `json:"result"`
		Error  *yfError          `json:"error"`
	} `json:"quoteSummary"`
}

type yfSummaryResult struct {
	SummaryDetail *struct {
		TrailingPE   yfFinVal `json:"trailingPE"`
		ForwardPE    yfFinVal `json:"forwardPE"`
		PriceToSales yfFinVal `json:"priceToSalesTrailing12Months"`
		ExpenseRatio yfFinVal `json:"expenseRatio"`
		Currency     string   `json:"currency"`
	} `json:"summaryDetail"`

	DefaultKeyStatistics *struct {
		PriceToBook              yfFinVal `json:"priceToBook"`
		ForwardPE                yfFinVal `json:"forwardPE"`
		ProfitMargins            yfFinVal `json:"profitMargins"`
		AnnualReportExpenseRatio yfFinVal `json:"annualReportExpenseRatio"`
	} `json:"defaultKeyStatistics"`

	FinancialData *struct {
		CurrentPrice   yfFinVal `json:"currentPrice"`
		ReturnOnEquity yfFinVal `json:"returnOnEquity"`
		DebtToEquity   yfFinVal `json:"debtToEquity"`
		CurrentRatio   yfFinVal `json:"currentRatio"`
		ProfitMargins  yfFinVal `json:"profitMargins"`
	} `json:"financialData"`

	AssetProfile *struct {
		Sector   string `json:"sector"`
		Industry string `json:"industry"`
	} `json:"assetProfile"`

	Price *struct {
		LongName           string   `json:"longName"`
		ShortName          string   `json:"shortName"`
		QuoteType          string   `json:"quoteType"`
		Currency           string   `json:"currency"`
		RegularMarketPrice yfFinVal `json:"regularMarketPrice"`
	} `json:"price"`

	FundProfile *struct {
		CategoryName           string `json:"categoryName"`
		FeesExpensesInvestment *struct {
			AnnualReportExpenseRatio yfFinVal `json:"annualReportExpenseRatio"`
		} `json:"feesExpensesInvestment"`
	} `json:"fundProfile"`
}

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
}

type yfIndicators struct {
	Quote    []yfOHLCV    `json:"quote"`
	AdjClose []yfAdjClose `json:"adjclose"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

// --- Public methods ---

// GetFundamentals returns the ratio snapshot from quoteSummary.
func (y *YFinance) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	if cached, ok := y.fundCache.Get(ticker); ok {
		return cached.Clone(), nil
	}

	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		y.baseURL, url.PathEscape(ticker), quoteSummaryModules)

	var resp yfSummaryResponse
	if err := y.fetch.GetJSON(ctx, u, map[string]string{"Accept": "application/json"}, &resp); err != nil {
		return nil, eris.Wrapf(classifyHTTP(err, ticker), "yahoo quoteSummary %s", ticker)
	}

	if len(resp.QuoteSummary.Result) == 0 {
		if resp.QuoteSummary.Error != nil {
			zap.L().Debug("yahoo quoteSummary error",
				zap.String("ticker", ticker),
				zap.String("code", resp.QuoteSummary.Error.Code),
				zap.String("description", resp.QuoteSummary.Error.Description),
			)
		}
		return nil, eris.Wrapf(ErrTickerNotFound, "%s", ticker)
	}

	f := parseYFSummary(ticker, resp.QuoteSummary.Result[0])
	f.FetchedAt = time.Now()

	y.fundCache.Set(ticker, f.Clone())
	return f, nil
}

// GetHistory returns daily bars from the chart API. An empty result is
// ErrNoHistory.
func (y *YFinance) GetHistory(ctx context.Context, ticker, period string) ([]models.OHLCV, error) {
	if period == "" {
		period = "6mo"
	}
	cacheKey := ticker + ":" + period
	if cached, ok := y.histCache.Get(cacheKey); ok {
		return cached, nil
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d",
		y.baseURL, url.PathEscape(ticker), url.QueryEscape(period))

	var resp yfChartResponse
	if err := y.fetch.GetJSON(ctx, u, map[string]string{"Accept": "application/json"}, &resp); err != nil {
		err = classifyHTTP(err, ticker)
		if eris.Is(err, ErrTickerNotFound) {
			return nil, eris.Wrapf(ErrNoHistory, "%s", ticker)
		}
		return nil, eris.Wrapf(err, "yahoo chart %s", ticker)
	}

	if len(resp.Chart.Result) == 0 {
		return nil, eris.Wrapf(ErrNoHistory, "%s", ticker)
	}

	candles := parseYFCandles(resp.Chart.Result[0])
	if len(candles) == 0 {
		return nil, eris.Wrapf(ErrNoHistory, "%s", ticker)
	}

	y.histCache.Set(cacheKey, candles)
	return candles, nil
}

// --- Helpers ---

func parseYFSummary(ticker string, r yfSummaryResult) *models.Fundamentals {
	f := &models.Fundamentals{Ticker: ticker, Sources: []string{"yahoo"}}

	if p := r.Price; p != nil {
		f.Name = coalesce(p.LongName, p.ShortName)
		f.QuoteType = p.QuoteType
		f.Currency = p.Currency
		f.Price = p.RegularMarketPrice.Raw
	}
	if sd := r.SummaryDetail; sd != nil {
		f.TrailingPE = sd.TrailingPE.Raw
		f.ForwardPE = sd.ForwardPE.Raw
		f.PriceToSales = sd.PriceToSales.Raw
		f.ExpenseRatio = sd.ExpenseRatio.Raw
		if f.Currency == "" {
			f.Currency = sd.Currency
		}
	}
	if ks := r.DefaultKeyStatistics; ks != nil {
		f.PriceToBook = ks.PriceToBook.Raw
		f.ForwardPE = first(f.ForwardPE, ks.ForwardPE.Raw)
		f.ProfitMargin = ks.ProfitMargins.Raw
		f.ExpenseRatio = first(f.ExpenseRatio, ks.AnnualReportExpenseRatio.Raw)
	}
	if fd := r.FinancialData; fd != nil {
		f.ReturnOnEquity = fd.ReturnOnEquity.Raw
		f.DebtToEquity = fd.DebtToEquity.Raw
		f.CurrentRatio = fd.CurrentRatio.Raw
		f.ProfitMargin = first(fd.ProfitMargins.Raw, f.ProfitMargin)
		f.Price = first(f.Price, fd.CurrentPrice.Raw)
	}
	if ap := r.AssetProfile; ap != nil {
		f.Sector = ap.Sector
		f.Industry = ap.Industry
	}
	if fp := r.FundProfile; fp != nil {
		if f.Industry == "" {
			f.Industry = fp.CategoryName
		}
		if fp.FeesExpensesInvestment != nil {
			f.ExpenseRatio = first(f.ExpenseRatio, fp.FeesExpensesInvestment.AnnualReportExpenseRatio.Raw)
		}
	}
	return f
}

// first returns the first non-nil value.
func first(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func parseYFCandles(result yfChartResult) []models.OHLCV {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	var adjCloses []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}

	candles := make([]models.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo emits null bars for halted sessions.
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		c := models.OHLCV{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			c.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			c.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			c.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			c.Volume = *q.Volume[i]
		}
		if i < len(adjCloses) && adjCloses[i] != nil {
			c.AdjClose = *adjCloses[i]
		}
		candles = append(candles, c)
	}
	return candles
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
