// Package models defines the core data structures used throughout stockscore.
package models

import (
	"math"
	"slices"
	"time"
)

// OHLCV represents a single candlestick bar of price data.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	AdjClose  float64   `json:"adj_close,omitempty"`
}

// Fundamentals is the raw ratio snapshot for one ticker, in the units the
// provider reports them. Nil means the provider had no value.
type Fundamentals struct {
	Ticker    string `json:"ticker"`               // e.g., "TSM", "RELIANCE.NS"
	Name      string `json:"name,omitempty"`       // e.g., "Taiwan Semiconductor Manufacturing"
	QuoteType string `json:"quote_type,omitempty"` // "EQUITY", "ETF", "MUTUALFUND"
	Sector    string `json:"sector,omitempty"`
	Industry  string `json:"industry,omitempty"`
	Currency  string `json:"currency,omitempty"`

	Price          *float64 `json:"price,omitempty"`
	TrailingPE     *float64 `json:"trailing_pe,omitempty"`
	ForwardPE      *float64 `json:"forward_pe,omitempty"`
	PriceToSales   *float64 `json:"price_to_sales,omitempty"`
	PriceToBook    *float64 `json:"price_to_book,omitempty"`
	ReturnOnEquity *float64 `json:"return_on_equity,omitempty"` // fraction, 0.25 = 25%
	DebtToEquity   *float64 `json:"debt_to_equity,omitempty"`   // percent, 45 = 0.45x
	CurrentRatio   *float64 `json:"current_ratio,omitempty"`
	ProfitMargin   *float64 `json:"profit_margin,omitempty"` // fraction
	ExpenseRatio   *float64 `json:"expense_ratio,omitempty"` // fraction

	Sources   []string  `json:"sources,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// IsFund reports whether the quote is an ETF or mutual fund.
func (f *Fundamentals) IsFund() bool {
	return f.QuoteType == "ETF" || f.QuoteType == "MUTUALFUND"
}

// Clone returns a deep copy of f. A nil f clones to nil.
func (f *Fundamentals) Clone() *Fundamentals {
	if f == nil {
		return nil
	}
	cp := *f
	for _, p := range []**float64{
		&cp.Price, &cp.TrailingPE, &cp.ForwardPE, &cp.PriceToSales, &cp.PriceToBook,
		&cp.ReturnOnEquity, &cp.DebtToEquity, &cp.CurrentRatio, &cp.ProfitMargin, &cp.ExpenseRatio,
	} {
		if *p != nil {
			v := **p
			*p = &v
		}
	}
	cp.Sources = slices.Clone(f.Sources)
	return &cp
}

// Merge fills every field still empty in f from other. Values already
// present in f win.
func (f *Fundamentals) Merge(other *Fundamentals) {
	if other == nil {
		return
	}
	fillString(&f.Name, other.Name)
	fillString(&f.QuoteType, other.QuoteType)
	fillString(&f.Sector, other.Sector)
	fillString(&f.Industry, other.Industry)
	fillString(&f.Currency, other.Currency)

	fillFloat(&f.Price, other.Price)
	fillFloat(&f.TrailingPE, other.TrailingPE)
	fillFloat(&f.ForwardPE, other.ForwardPE)
	fillFloat(&f.PriceToSales, other.PriceToSales)
	fillFloat(&f.PriceToBook, other.PriceToBook)
	fillFloat(&f.ReturnOnEquity, other.ReturnOnEquity)
	fillFloat(&f.DebtToEquity, other.DebtToEquity)
	fillFloat(&f.CurrentRatio, other.CurrentRatio)
	fillFloat(&f.ProfitMargin, other.ProfitMargin)
	fillFloat(&f.ExpenseRatio, other.ExpenseRatio)

	f.Sources = append(f.Sources, other.Sources...)
}

func fillString(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}

func fillFloat(dst **float64, src *float64) {
	if (*dst == nil || math.IsNaN(**dst)) && src != nil {
		v := *src
		*dst = &v
	}
}

// PriceSummary condenses a price history into the figures the reports show.
type PriceSummary struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Bars       int       `json:"bars"`
	FirstClose float64   `json:"first_close"`
	LastClose  float64   `json:"last_close"`
	ChangePct  float64   `json:"change_pct"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
}

// SummarizePrices computes a PriceSummary. It returns nil for an empty
// history.
func SummarizePrices(bars []OHLCV) *PriceSummary {
	if len(bars) == 0 {
		return nil
	}
	first, last := bars[0], bars[len(bars)-1]
	s := &PriceSummary{
		Start:      first.Timestamp,
		End:        last.Timestamp,
		Bars:       len(bars),
		FirstClose: first.Close,
		LastClose:  last.Close,
		High:       first.High,
		Low:        first.Low,
	}
	for _, b := range bars {
		s.High = math.Max(s.High, b.High)
		s.Low = math.Min(s.Low, b.Low)
	}
	if first.Close != 0 {
		s.ChangePct = (last.Close - first.Close) / first.Close * 100
	}
	return s
}
