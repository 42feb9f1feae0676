package datasource

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/seenimoa/stockscore/internal/infra"
	"github.com/seenimoa/stockscore/pkg/models"
	"github.com/seenimoa/stockscore/pkg/utils"
)

// Screener implements FundamentalsSource by scraping Screener.in. It only
// serves NSE and BSE listings.
type Screener struct {
	baseURL string
	fetch   *infra.Fetcher
	cache   *infra.Cache[*models.Fundamentals]
}

// NewScreener creates a new Screener.in data source.
func NewScreener(opts Options) *Screener {
	base := strings.TrimRight(opts.ScreenerBaseURL, "/")
	if base == "" {
		base = "https://www.screener.in"
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 1 // conservative: 1 req/s
	}
	return &Screener{
		baseURL: base,
		fetch:   infra.NewFetcher(opts.Timeout, rps),
		cache:   infra.NewCache[*models.Fundamentals](opts.CacheTTL),
	}
}

// Name returns the data source name.
func (s *Screener) Name() string { return "screener" }

// GetFundamentals returns the ratios listed in Screener.in's top-ratios
// panel, converted to Yahoo units (ROE as a fraction, D/E as a percent).
func (s *Screener) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	if !utils.IsIndianListing(ticker) {
		return nil, eris.Wrapf(ErrNotSupported, "screener: %s is not an NSE/BSE listing", ticker)
	}
	if cached, ok := s.cache.Get(ticker); ok {
		return cached.Clone(), nil
	}

	doc, err := s.fetchPage(ctx, utils.BaseSymbol(ticker))
	if err != nil {
		return nil, err
	}

	f := parseTopRatios(doc)
	f.Ticker = ticker
	f.FetchedAt = time.Now()

	s.cache.Set(ticker, f.Clone())
	return f, nil
}

// --- Internal helpers ---

func (s *Screener) fetchPage(ctx context.Context, symbol string) (*goquery.Document, error) {
	headers := map[string]string{"Accept": "text/html"}

	body, err := s.fetch.Get(ctx, fmt.Sprintf("%s/company/%s/consolidated/", s.baseURL, symbol), headers)
	if err != nil {
		// Try standalone if consolidated not found.
		body, err = s.fetch.Get(ctx, fmt.Sprintf("%s/company/%s/", s.baseURL, symbol), headers)
		if err != nil {
			return nil, eris.Wrapf(classifyHTTP(err, symbol), "screener.in %s", symbol)
		}
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, eris.Wrap(err, "parse screener HTML")
	}
	return doc, nil
}

func parseTopRatios(doc *goquery.Document) *models.Fundamentals {
	f := &models.Fundamentals{
		Name:     strings.TrimSpace(doc.Find("h1").First().Text()),
		Currency: "INR",
		Sources:  []string{"screener"},
	}

	var bookValue *float64
	doc.Find("#top-ratios li").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Find(".name").Text())
		val := parseScreenerNumber(sel.Find(".number").First().Text())
		if val == nil {
			return
		}

		switch {
		case strings.Contains(name, "Current Price"):
			f.Price = val
		case strings.Contains(name, "Stock P/E"):
			f.TrailingPE = val
		case strings.Contains(name, "Book Value"):
			bookValue = val
		case strings.Contains(name, "Price to book"):
			f.PriceToBook = val
		case strings.Contains(name, "ROCE"):
			// not rated
		case strings.Contains(name, "ROE"):
			f.ReturnOnEquity = scale(val, 0.01)
		case strings.Contains(name, "Debt to equity"):
			f.DebtToEquity = scale(val, 100)
		case strings.Contains(name, "Current ratio"):
			f.CurrentRatio = val
		case strings.Contains(name, "OPM"), strings.Contains(name, "Net profit margin"):
			f.ProfitMargin = scale(val, 0.01)
		}
	})

	if f.PriceToBook == nil && f.Price != nil && bookValue != nil && *bookValue != 0 {
		pb := *f.Price / *bookValue
		f.PriceToBook = &pb
	}

	if sector := strings.TrimSpace(doc.Find("#peers a[title='Sector']").First().Text()); sector != "" {
		f.Sector = sector
	}
	return f
}

func scale(v *float64, by float64) *float64 {
	out := *v * by
	return &out
}

// parseScreenerNumber parses "1,234.5", "12.3 %" or "₹ 2,850" into a float.
// Unparseable text yields nil.
func parseScreenerNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, "₹", "")
	s = strings.TrimSpace(s)

	multiplier := 1.0
	if strings.HasSuffix(s, "Cr") || strings.HasSuffix(s, "Cr.") {
		s = strings.TrimSuffix(s, "Cr.")
		s = strings.TrimSuffix(s, "Cr")
		s = strings.TrimSpace(s)
		multiplier = 1e7 // 1 Crore = 10 million
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	val *= multiplier
	return &val
}
