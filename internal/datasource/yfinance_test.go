package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tsmSummary = `{"quoteSummary":{"result":[{
 "summaryDetail":{"trailingPE":{"raw":24.5,"fmt":"24.50"},"forwardPE":{"raw":18.2,"fmt":"18.20"},
   "priceToSalesTrailing12Months":{"raw":9.1,"fmt":"9.10"},"currency":"USD"},
 "defaultKeyStatistics":{"priceToBook":{"raw":7.3,"fmt":"7.30"},"profitMargins":{"raw":0.41,"fmt":"41%"}},
 "financialData":{"returnOnEquity":{"raw":0.28,"fmt":"28%"},"debtToEquity":{"raw":24.0,"fmt":"24.00"},
   "currentRatio":{"raw":2.4,"fmt":"2.40"},"currentPrice":{"raw":190.5,"fmt":"190.50"}},
 "assetProfile":{"sector":"Technology","industry":"Semiconductors"},
 "price":{"longName":"Taiwan Semiconductor Manufacturing Company Limited","quoteType":"EQUITY","currency":"USD",
   "regularMarketPrice":{"raw":191.0,"fmt":"191.00"}}
}],"error":null}}`

const chartBody = `{"chart":{"result":[{"meta":{"symbol":"TSM","currency":"USD"},
 "timestamp":[1700000000,1700086400,1700172800],
 "indicators":{"quote":[{"open":[100,101,null],"high":[105,106,null],"low":[98,99,null],
   "close":[103,104,null],"volume":[1000,1100,null]}],"adjclose":[{"adjclose":[102.5,103.5,null]}]}}],"error":null}}`

func newYahooServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v10/finance/quoteSummary/", func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/v10/finance/quoteSummary/") {
		case "TSM":
			assert.Contains(t, r.URL.Query().Get("modules"), "financialData")
			fmt.Fprint(w, tsmSummary)
		case "LIMIT":
			w.WriteHeader(http.StatusTooManyRequests)
		case "EMPTY":
			fmt.Fprint(w, `{"quoteSummary":{"result":[],"error":{"code":"Not Found","description":"Quote not found"}}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found"}}}`)
		}
	})
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/") {
		case "TSM":
			assert.Equal(t, "6mo", r.URL.Query().Get("range"))
			assert.Equal(t, "1d", r.URL.Query().Get("interval"))
			fmt.Fprint(w, chartBody)
		case "BLANK":
			fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"BLANK"},"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestYFinance(srv *httptest.Server) *YFinance {
	return NewYFinance(Options{YahooBaseURL: srv.URL, CacheTTL: time.Minute, Timeout: 5 * time.Second})
}

func TestYFinanceGetFundamentals(t *testing.T) {
	y := newTestYFinance(newYahooServer(t))

	f, err := y.GetFundamentals(context.Background(), "TSM")
	require.NoError(t, err)

	assert.Equal(t, "Taiwan Semiconductor Manufacturing Company Limited", f.Name)
	assert.Equal(t, "Technology", f.Sector)
	assert.Equal(t, "EQUITY", f.QuoteType)
	assert.Equal(t, "USD", f.Currency)
	assert.Equal(t, 24.5, *f.TrailingPE)
	assert.Equal(t, 18.2, *f.ForwardPE)
	assert.Equal(t, 9.1, *f.PriceToSales)
	assert.Equal(t, 7.3, *f.PriceToBook)
	assert.Equal(t, 0.28, *f.ReturnOnEquity)
	assert.Equal(t, 24.0, *f.DebtToEquity)
	assert.Equal(t, 2.4, *f.CurrentRatio)
	assert.Equal(t, 0.41, *f.ProfitMargin)
	assert.Equal(t, 191.0, *f.Price)
	assert.Nil(t, f.ExpenseRatio)
	assert.Equal(t, []string{"yahoo"}, f.Sources)
}

func TestYFinanceGetFundamentalsErrors(t *testing.T) {
	y := newTestYFinance(newYahooServer(t))
	ctx := context.Background()

	_, err := y.GetFundamentals(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrTickerNotFound)

	_, err = y.GetFundamentals(ctx, "EMPTY")
	assert.ErrorIs(t, err, ErrTickerNotFound)

	_, err = y.GetFundamentals(ctx, "LIMIT")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestYFinanceGetHistory(t *testing.T) {
	y := newTestYFinance(newYahooServer(t))

	bars, err := y.GetHistory(context.Background(), "TSM", "")
	require.NoError(t, err)
	require.Len(t, bars, 2, "null bars are skipped")

	assert.Equal(t, 103.0, bars[0].Close)
	assert.Equal(t, 105.0, bars[0].High)
	assert.Equal(t, int64(1100), bars[1].Volume)
	assert.Equal(t, 103.5, bars[1].AdjClose)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), bars[0].Timestamp)
}

func TestYFinanceGetHistoryEmpty(t *testing.T) {
	y := newTestYFinance(newYahooServer(t))
	ctx := context.Background()

	_, err := y.GetHistory(ctx, "BLANK", "6mo")
	assert.ErrorIs(t, err, ErrNoHistory)

	_, err = y.GetHistory(ctx, "NOPE", "6mo")
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestYFinanceCachesFundamentals(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, tsmSummary)
	}))
	defer srv.Close()

	y := newTestYFinance(srv)
	for i := 0; i < 3; i++ {
		_, err := y.GetFundamentals(context.Background(), "TSM")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestParseYFSummaryFund(t *testing.T) {
	var r yfSummaryResult
	require.NoError(t, json.Unmarshal([]byte(`{
		"price":{"shortName":"Vanguard S&P 500 ETF","quoteType":"ETF"},
		"summaryDetail":{"trailingPE":{"raw":27.1}},
		"fundProfile":{"categoryName":"Large Blend",
			"feesExpensesInvestment":{"annualReportExpenseRatio":{"raw":0.0003,"fmt":"0.03%"}}}
	}`), &r))

	f := parseYFSummary("VOO", r)
	require.NotNil(t, f.ExpenseRatio)
	assert.Equal(t, 0.0003, *f.ExpenseRatio)
	assert.Equal(t, "Large Blend", f.Industry)
	assert.Equal(t, "Vanguard S&P 500 ETF", f.Name)
	assert.True(t, f.IsFund())
	assert.Nil(t, f.ReturnOnEquity)
}

func TestParseYFCandlesEmpty(t *testing.T) {
	assert.Nil(t, parseYFCandles(yfChartResult{}))
}
