package rating

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// Scale is the number of points awarded for the best and middle buckets.
// The worst and neutral buckets always score zero.
type Scale struct {
	Best   int `mapstructure:"best"   yaml:"best"   json:"best"   validate:"gte=0"`
	Middle int `mapstructure:"middle" yaml:"middle" json:"middle" validate:"gte=0,ltefield=Best"`
}

// Points returns the points for grade g.
func (s Scale) Points(g Grade) int {
	switch g {
	case GradeBest:
		return s.Best
	case GradeMiddle:
		return s.Middle
	default:
		return 0
	}
}

// Weight binds a metric to its point scale within a profile. Secondary is
// set only on dual-mode profiles that carry a second scoring scheme.
type Weight struct {
	Metric    Metric `mapstructure:"metric"    yaml:"metric"              json:"metric"              validate:"required"`
	Points    Scale  `mapstructure:"points"    yaml:"points"              json:"points"`
	Secondary *Scale `mapstructure:"secondary" yaml:"secondary,omitempty" json:"secondary,omitempty" validate:"omitempty"`
}

// Profile is a named scoring configuration: which metrics count and how
// many points each bucket is worth.
type Profile struct {
	Name          string   `mapstructure:"name"           yaml:"name"                     json:"name"                     validate:"required"`
	Description   string   `mapstructure:"description"    yaml:"description"              json:"description"`
	SecondaryName string   `mapstructure:"secondary_name" yaml:"secondary_name,omitempty" json:"secondary_name,omitempty"`
	Weights       []Weight `mapstructure:"weights"        yaml:"weights"                  json:"weights"                  validate:"required,min=1,dive"`
}

// Max is the highest attainable primary composite.
func (p Profile) Max() int {
	total := 0
	for _, w := range p.Weights {
		total += w.Points.Best
	}
	return total
}

// SecondaryMax is the highest attainable secondary composite, 0 when the
// profile has no secondary scheme.
func (p Profile) SecondaryMax() int {
	total := 0
	for _, w := range p.Weights {
		if w.Secondary != nil {
			total += w.Secondary.Best
		}
	}
	return total
}

// HasSecondary reports whether any weight carries a secondary scale.
func (p Profile) HasSecondary() bool {
	for _, w := range p.Weights {
		if w.Secondary != nil {
			return true
		}
	}
	return false
}

// Metrics lists the profile's metrics in scoring order.
func (p Profile) Metrics() []Metric {
	out := make([]Metric, 0, len(p.Weights))
	for _, w := range p.Weights {
		out = append(out, w.Metric)
	}
	return out
}

// Includes reports whether m is scored by the profile.
func (p Profile) Includes(m Metric) bool {
	_, ok := p.weight(m)
	return ok
}

func (p Profile) weight(m Metric) (Weight, bool) {
	for _, w := range p.Weights {
		if w.Metric == m {
			return w, true
		}
	}
	return Weight{}, false
}

var validate = validator.New()

// Validate checks struct constraints, then that every metric is supported
// and appears at most once.
func (p Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return eris.Wrapf(ErrInvalidProfile, "profile %q: %v", p.Name, err)
	}

	seen := make(map[Metric]bool, len(p.Weights))
	for _, w := range p.Weights {
		if !w.Metric.Supported() {
			return eris.Wrapf(ErrInvalidProfile, "profile %q: unsupported metric %q", p.Name, w.Metric)
		}
		if seen[w.Metric] {
			return eris.Wrapf(ErrInvalidProfile, "profile %q: metric %q listed twice", p.Name, w.Metric)
		}
		seen[w.Metric] = true
	}
	if p.Max() == 0 {
		return eris.Wrapf(ErrInvalidProfile, "profile %q: awards no points", p.Name)
	}
	return nil
}

// Summary is a one-line description such as "PE+ROE+DEBT @ 33/15 (max 100)".
func (p Profile) Summary() string {
	names := make([]string, 0, len(p.Weights))
	for _, w := range p.Weights {
		names = append(names, string(w.Metric))
	}
	return fmt.Sprintf("%s (max %d)", strings.Join(names, "+"), p.Max())
}

// --- Built-in profiles ---

// DefaultProfileName is used when a request names no profile.
const DefaultProfileName = "five"

func uniform(best, middle int, metrics ...Metric) []Weight {
	ws := make([]Weight, 0, len(metrics))
	for _, m := range metrics {
		ws = append(ws, Weight{Metric: m, Points: Scale{Best: best, Middle: middle}})
	}
	return ws
}

func classic() *Scale { return &Scale{Best: 33, Middle: 15} }

// BuiltinProfiles returns the scoring profiles shipped with stockscore.
func BuiltinProfiles() []Profile {
	return []Profile{
		{
			Name:        "five",
			Description: "Five health checks worth 20 points each",
			Weights:     uniform(20, 10, MetricPE, MetricPS, MetricPB, MetricROE, MetricDebt),
		},
		{
			Name:        "four",
			Description: "Four health checks worth 25 points each, P/B excluded",
			Weights:     uniform(25, 12, MetricPE, MetricPS, MetricROE, MetricDebt),
		},
		{
			Name:        "three",
			Description: "Classic valuation, profitability and leverage check",
			Weights: []Weight{
				{Metric: MetricPE, Points: Scale{Best: 34, Middle: 15}},
				{Metric: MetricROE, Points: Scale{Best: 33, Middle: 15}},
				{Metric: MetricDebt, Points: Scale{Best: 33, Middle: 15}},
			},
		},
		{
			Name:          "dual",
			Description:   "Modern five-metric score alongside the classic three-metric score",
			SecondaryName: "classic",
			Weights: []Weight{
				{Metric: MetricPE, Points: Scale{Best: 20, Middle: 10}, Secondary: classic()},
				{Metric: MetricPS, Points: Scale{Best: 20, Middle: 10}},
				{Metric: MetricPB, Points: Scale{Best: 20, Middle: 10}},
				{Metric: MetricROE, Points: Scale{Best: 20, Middle: 10}, Secondary: classic()},
				{Metric: MetricDebt, Points: Scale{Best: 20, Middle: 10}, Secondary: classic()},
			},
		},
		{
			Name:        "fund",
			Description: "ETF / fund check: cost, valuation and book multiple",
			Weights: []Weight{
				{Metric: MetricExpense, Points: Scale{Best: 34, Middle: 15}},
				{Metric: MetricPE, Points: Scale{Best: 33, Middle: 15}},
				{Metric: MetricPB, Points: Scale{Best: 33, Middle: 15}},
			},
		},
		{
			Name:        "quality",
			Description: "Balance-sheet and profitability quality",
			Weights:     uniform(20, 10, MetricROE, MetricMargin, MetricCurrent, MetricDebt, MetricPE),
		},
	}
}

// sortedProfiles returns profiles ordered by name.
func sortedProfiles(m map[string]Profile) []Profile {
	out := make([]Profile, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
