package rating

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Grade is the bucket a reading falls into.
type Grade string

const (
	GradeBest    Grade = "best"
	GradeMiddle  Grade = "middle"
	GradeWorst   Grade = "worst"
	GradeNeutral Grade = "neutral"
)

// Label is a bucket's descriptive text plus its display icon.
type Label struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

// String renders the label the way the dashboard shows it, e.g. "✅ Good Value".
func (l Label) String() string {
	if l.Icon == "" {
		return l.Text
	}
	return l.Icon + " " + l.Text
}

// NeutralLabel is returned for every metric when no data is available.
var NeutralLabel = Label{Text: "Neutral", Icon: "⚪"}

// direction says whether smaller or larger values are healthier.
type direction int

const (
	lowerIsBetter direction = iota
	higherIsBetter
)

// bucket matches values strictly below (lowerIsBetter) or strictly above
// (higherIsBetter) bound. The last bucket of a table is the catch-all and
// its bound is ignored.
type bucket struct {
	bound float64
	label Label
	grade Grade
}

// Threshold is one row of the rendered threshold table.
type Threshold struct {
	Metric Metric  `json:"metric"`
	Sector string  `json:"sector,omitempty"`
	Higher bool    `json:"higher_is_better"`
	Best   float64 `json:"best_bound"`
	Middle float64 `json:"middle_bound"`
	Labels []Label `json:"labels"`
}

type table struct {
	dir     direction
	buckets []bucket
}

func lower(bestBelow, middleBelow float64, best, middle, worst Label) table {
	return table{dir: lowerIsBetter, buckets: []bucket{
		{bound: bestBelow, label: best, grade: GradeBest},
		{bound: middleBelow, label: middle, grade: GradeMiddle},
		{label: worst, grade: GradeWorst},
	}}
}

func higher(bestAbove, middleAbove float64, best, middle, worst Label) table {
	return table{dir: higherIsBetter, buckets: []bucket{
		{bound: bestAbove, label: best, grade: GradeBest},
		{bound: middleAbove, label: middle, grade: GradeMiddle},
		{label: worst, grade: GradeWorst},
	}}
}

var average = Label{Text: "Average", Icon: "⚖️"}

var (
	peTable = lower(20, 40,
		Label{"Good Value", "✅"}, average, Label{"Pricey", "⚠️"})
	roeTable = higher(18, 8,
		Label{"High Power", "🔥"}, average, Label{"Slow", "🐌"})
	debtTable = lower(0.8, 1.6,
		Label{"Very Safe", "🛡️"}, average, Label{"Risky Debt", "🚩"})
	psTable = lower(2.0, 5.0,
		Label{"Fair Sales", "✅"}, Label{"Moderate", "⚖️"}, Label{"High Premium", "⚠️"})
	pbTable = lower(1.5, 4.0,
		Label{"Undervalued", "💎"}, Label{"Fair Assets", "⚖️"}, Label{"Asset Heavy", "⚠️"})
	pbTechTable = lower(8.0, 15.0,
		Label{"Tech Value", "💎"}, Label{"Tech Fair", "⚖️"}, Label{"Asset Heavy", "⚠️"})
	expenseTable = lower(0.15, 0.50,
		Label{"Low Cost", "💰"}, Label{"Moderate Cost", "⚖️"}, Label{"Expensive", "⚠️"})
	currentTable = higher(1.5, 1.0,
		Label{"Liquid", "💧"}, Label{"Adequate", "⚖️"}, Label{"Tight Liquidity", "🚩"})
	marginTable = higher(20, 10,
		Label{"High Margin", "🔥"}, average, Label{"Thin Margin", "🐌"})
)

var tables = map[Metric]table{
	MetricPE:        peTable,
	MetricPEForward: peTable,
	MetricROE:       roeTable,
	MetricDebt:      debtTable,
	MetricPS:        psTable,
	MetricPB:        pbTable,
	MetricExpense:   expenseTable,
	MetricCurrent:   currentTable,
	MetricMargin:    marginTable,
}

// TechSectors get the relaxed P/B table: asset-light businesses carry
// structurally higher price-to-book multiples.
var TechSectors = []string{"Technology", "Communication Services"}

// IsTechSector reports whether sector uses the tech P/B thresholds.
func IsTechSector(sector string) bool {
	s := strings.TrimSpace(sector)
	for _, t := range TechSectors {
		if strings.EqualFold(s, t) {
			return true
		}
	}
	return false
}

// tableFor selects the threshold table. Sector only gates P/B.
func tableFor(m Metric, sector string) (table, bool) {
	if m == MetricPB && IsTechSector(sector) {
		return pbTechTable, true
	}
	t, ok := tables[m]
	return t, ok
}

func (t table) classify(v float64) bucket {
	last := len(t.buckets) - 1
	for _, b := range t.buckets[:last] {
		if t.dir == lowerIsBetter && v < b.bound {
			return b
		}
		if t.dir == higherIsBetter && v > b.bound {
			return b
		}
	}
	return t.buckets[last]
}

// Classification is the outcome of a table lookup, before any points are
// attached.
type Classification struct {
	Metric Metric `json:"metric"`
	Label  Label  `json:"label"`
	Grade  Grade  `json:"grade"`
}

// Classify looks a reading up in its threshold table. Unavailable values
// classify as Neutral; an unknown metric is a programmer error and fails
// with ErrUnsupportedMetric.
func Classify(r Reading) (Classification, error) {
	t, ok := tableFor(r.Metric, r.Sector)
	if !ok {
		return Classification{}, eris.Wrapf(ErrUnsupportedMetric, "metric %q", r.Metric)
	}

	v, ok := available(r.Value)
	if !ok {
		return Classification{Metric: r.Metric, Label: NeutralLabel, Grade: GradeNeutral}, nil
	}

	b := t.classify(v)
	return Classification{Metric: r.Metric, Label: b.label, Grade: b.grade}, nil
}

// Thresholds returns the full threshold table, one row per metric plus the
// tech-sector P/B row, for methodology displays.
func Thresholds() []Threshold {
	rows := make([]Threshold, 0, len(allMetrics)+1)
	for _, m := range allMetrics {
		rows = append(rows, thresholdRow(m, "", tables[m]))
		if m == MetricPB {
			rows = append(rows, thresholdRow(m, strings.Join(TechSectors, ", "), pbTechTable))
		}
	}
	return rows
}

func thresholdRow(m Metric, sector string, t table) Threshold {
	row := Threshold{
		Metric: m,
		Sector: sector,
		Higher: t.dir == higherIsBetter,
		Best:   t.buckets[0].bound,
		Middle: t.buckets[1].bound,
	}
	for _, b := range t.buckets {
		row.Labels = append(row.Labels, b.label)
	}
	return row
}
