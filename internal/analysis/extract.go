// Package analysis turns a fetched market snapshot into a scored, optionally
// narrated, stock health analysis.
package analysis

import (
	"github.com/seenimoa/stockscore/internal/rating"
	"github.com/seenimoa/stockscore/pkg/models"
)

// ExtractReadings converts provider fundamentals into rating readings in
// the units the threshold tables expect: ROE, margin and expense ratio as
// percentages, debt/equity as a plain ratio. Missing values stay nil and
// rate as neutral.
func ExtractReadings(f *models.Fundamentals) rating.Readings {
	if f == nil {
		return rating.Readings{}
	}

	values := map[rating.Metric]*float64{
		rating.MetricPE:        f.TrailingPE,
		rating.MetricPEForward: f.ForwardPE,
		rating.MetricROE:       scaled(f.ReturnOnEquity, 100),
		rating.MetricDebt:      scaled(f.DebtToEquity, 0.01),
		rating.MetricPS:        f.PriceToSales,
		rating.MetricPB:        f.PriceToBook,
		rating.MetricExpense:   scaled(f.ExpenseRatio, 100),
		rating.MetricCurrent:   f.CurrentRatio,
		rating.MetricMargin:    scaled(f.ProfitMargin, 100),
	}
	return rating.ReadingsFromValues(values, f.Sector)
}

func scaled(v *float64, by float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v * by
	return &out
}
