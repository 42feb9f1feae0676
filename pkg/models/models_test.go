package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestFundamentalsMergeKeepsExisting(t *testing.T) {
	f := &Fundamentals{
		Ticker:      "INFY.NS",
		Sector:      "Technology",
		TrailingPE:  ptr(24),
		PriceToBook: ptr(math.NaN()),
		Sources:     []string{"yahoo"},
	}
	f.Merge(&Fundamentals{
		Sector:         "IT Services",
		Name:           "Infosys",
		TrailingPE:     ptr(30),
		PriceToBook:    ptr(7.1),
		ReturnOnEquity: ptr(0.31),
		Sources:        []string{"screener"},
	})

	assert.Equal(t, "Technology", f.Sector)
	assert.Equal(t, "Infosys", f.Name)
	assert.Equal(t, 24.0, *f.TrailingPE)
	assert.Equal(t, 7.1, *f.PriceToBook)
	assert.Equal(t, 0.31, *f.ReturnOnEquity)
	assert.Nil(t, f.DebtToEquity)
	assert.Equal(t, []string{"yahoo", "screener"}, f.Sources)

	f.Merge(nil)
	assert.Equal(t, 24.0, *f.TrailingPE)
}

func TestFundamentalsIsFund(t *testing.T) {
	assert.True(t, (&Fundamentals{QuoteType: "ETF"}).IsFund())
	assert.True(t, (&Fundamentals{QuoteType: "MUTUALFUND"}).IsFund())
	assert.False(t, (&Fundamentals{QuoteType: "EQUITY"}).IsFund())
}

func TestSummarizePrices(t *testing.T) {
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	bars := []OHLCV{
		{Timestamp: day, High: 105, Low: 95, Close: 100},
		{Timestamp: day.AddDate(0, 0, 1), High: 130, Low: 99, Close: 120},
		{Timestamp: day.AddDate(0, 0, 2), High: 125, Low: 90, Close: 110},
	}

	s := SummarizePrices(bars)
	require.NotNil(t, s)
	assert.Equal(t, 3, s.Bars)
	assert.Equal(t, 100.0, s.FirstClose)
	assert.Equal(t, 110.0, s.LastClose)
	assert.InDelta(t, 10.0, s.ChangePct, 1e-9)
	assert.Equal(t, 130.0, s.High)
	assert.Equal(t, 90.0, s.Low)
	assert.Equal(t, day, s.Start)

	assert.Nil(t, SummarizePrices(nil))
}

func TestFundamentalsClone(t *testing.T) {
	orig := &Fundamentals{
		Ticker:     "TSM",
		TrailingPE: ptr(24),
		Sources:    make([]string, 1, 4),
	}
	orig.Sources[0] = "yahoo"

	cp := orig.Clone()
	require.NotNil(t, cp)
	*cp.TrailingPE = 99
	cp.Merge(&Fundamentals{PriceToBook: ptr(3), Sources: []string{"screener"}})

	assert.Equal(t, 24.0, *orig.TrailingPE)
	assert.Nil(t, orig.PriceToBook)
	assert.Equal(t, []string{"yahoo"}, orig.Sources)
	assert.Equal(t, []string{"yahoo", "screener"}, cp.Sources)

	var nilF *Fundamentals
	assert.Nil(t, nilF.Clone())
}
