// Package rating implements the threshold-based health scoring used by
// stockscore: each fundamental ratio is classified into a best/middle/worst
// bucket, bucket points are summed under a scoring profile, and the composite
// is mapped to a verdict tier.
//
// Everything in this package is pure. No function reads ambient state, and
// an Engine is read-only once its profiles have been registered.
package rating

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Metric identifies which threshold table a reading is classified against.
type Metric string

const (
	MetricPE        Metric = "PE"      // trailing P/E
	MetricPEForward Metric = "PE_FWD"  // forward P/E
	MetricROE       Metric = "ROE"     // return on equity, percent
	MetricDebt      Metric = "DEBT"    // debt / equity ratio
	MetricPS        Metric = "PS"      // price / sales (ttm)
	MetricPB        Metric = "PB"      // price / book, sector aware
	MetricExpense   Metric = "EXPENSE" // fund expense ratio, percent
	MetricCurrent   Metric = "CURRENT" // current ratio
	MetricMargin    Metric = "MARGIN"  // profit margin, percent
)

// Sentinel errors.
var (
	ErrUnsupportedMetric = eris.New("rating: unsupported metric")
	ErrUnknownProfile    = eris.New("rating: unknown profile")
	ErrInvalidProfile    = eris.New("rating: invalid profile")
)

// allMetrics lists every supported metric in display order.
var allMetrics = []Metric{
	MetricPE, MetricPEForward, MetricPS, MetricPB, MetricROE,
	MetricDebt, MetricCurrent, MetricMargin, MetricExpense,
}

var metricNames = map[Metric]string{
	MetricPE:        "P/E (TTM)",
	MetricPEForward: "P/E (Forward)",
	MetricROE:       "ROE %",
	MetricDebt:      "Debt/Equity",
	MetricPS:        "P/S Ratio",
	MetricPB:        "P/B Ratio",
	MetricExpense:   "Expense Ratio %",
	MetricCurrent:   "Current Ratio",
	MetricMargin:    "Profit Margin %",
}

var metricAliases = map[string]Metric{
	"PE":            MetricPE,
	"P/E":           MetricPE,
	"PE_TRAILING":   MetricPE,
	"TRAILING_PE":   MetricPE,
	"PE_FWD":        MetricPEForward,
	"PE_FORWARD":    MetricPEForward,
	"FORWARD_PE":    MetricPEForward,
	"ROE":           MetricROE,
	"DEBT":          MetricDebt,
	"DE":            MetricDebt,
	"D/E":           MetricDebt,
	"DEBT_EQUITY":   MetricDebt,
	"PS":            MetricPS,
	"P/S":           MetricPS,
	"PB":            MetricPB,
	"P/B":           MetricPB,
	"EXPENSE":       MetricExpense,
	"EXPENSE_RATIO": MetricExpense,
	"CURRENT":       MetricCurrent,
	"CURRENT_RATIO": MetricCurrent,
	"MARGIN":        MetricMargin,
	"PROFIT_MARGIN": MetricMargin,
}

// Metrics returns all supported metrics in display order.
func Metrics() []Metric {
	out := make([]Metric, len(allMetrics))
	copy(out, allMetrics)
	return out
}

// ParseMetric resolves a user-supplied metric key (case-insensitive, with a
// few common aliases) to a Metric.
func ParseMetric(s string) (Metric, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	if m, ok := metricAliases[key]; ok {
		return m, nil
	}
	return "", eris.Wrapf(ErrUnsupportedMetric, "metric %q", s)
}

// Supported reports whether m has a threshold table.
func (m Metric) Supported() bool {
	_, ok := metricNames[m]
	return ok
}

// DisplayName returns the human label used in tables, e.g. "P/E (TTM)".
func (m Metric) DisplayName() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	return string(m)
}

// --- Readings ---

// Reading is a single raw metric value. A nil Value, a zero value and NaN
// are all treated as "not available".
type Reading struct {
	Metric Metric   `json:"metric"`
	Value  *float64 `json:"value"`
	Sector string   `json:"sector,omitempty"` // consulted for PB only
}

// Readings maps each metric to its reading for one analysis run.
type Readings map[Metric]Reading

// Value returns a pointer to v, for building readings inline.
func Value(v float64) *float64 { return &v }

// NewReading builds a Reading for metric m.
func NewReading(m Metric, v *float64, sector string) Reading {
	return Reading{Metric: m, Value: v, Sector: sector}
}

// ReadingsFromValues builds a Readings set from raw values, stamping every
// reading with the same sector.
func ReadingsFromValues(values map[Metric]*float64, sector string) Readings {
	rs := make(Readings, len(values))
	for m, v := range values {
		rs[m] = NewReading(m, v, sector)
	}
	return rs
}

// Available reports whether the reading carries usable data.
func (r Reading) Available() bool {
	_, ok := available(r.Value)
	return ok
}

// available collapses nil, zero and NaN into "no data". Providers report 0
// for unset fields, so a literal zero ratio is indistinguishable and is
// scored as neutral as well.
func available(v *float64) (float64, bool) {
	if v == nil || *v == 0 || math.IsNaN(*v) {
		return 0, false
	}
	return *v, true
}
