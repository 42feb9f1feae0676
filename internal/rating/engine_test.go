package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readings(sector string, values map[Metric]float64) Readings {
	raw := make(map[Metric]*float64, len(values))
	for m, v := range values {
		raw[m] = Value(v)
	}
	return ReadingsFromValues(raw, sector)
}

func TestBuiltinProfilesAreValid(t *testing.T) {
	for _, p := range BuiltinProfiles() {
		require.NoError(t, p.Validate(), p.Name)
	}
}

func TestBuiltinProfileMaxima(t *testing.T) {
	e := NewEngine()
	want := map[string]int{"five": 100, "four": 100, "three": 100, "dual": 100, "fund": 100, "quality": 100}
	for name, max := range want {
		p, err := e.Profile(name)
		require.NoError(t, err)
		assert.Equal(t, max, p.Max(), name)
	}

	dual, _ := e.Profile("dual")
	assert.True(t, dual.HasSecondary())
	assert.Equal(t, 99, dual.SecondaryMax())
}

func TestScoreFiveMetricAllBest(t *testing.T) {
	e := NewEngine()
	p, err := e.Profile("five")
	require.NoError(t, err)

	comp, err := e.Score(p, readings("Other", map[Metric]float64{
		MetricPE: 15, MetricROE: 22, MetricDebt: 0.5, MetricPS: 1.5, MetricPB: 1.0,
	}))
	require.NoError(t, err)

	require.Len(t, comp.Results, 5)
	for _, r := range comp.Results {
		assert.Equal(t, 20, r.Score, r.Metric)
		assert.Equal(t, GradeBest, r.Grade, r.Metric)
	}
	assert.Equal(t, 100, comp.Score)
	assert.Equal(t, 100, comp.Max)
	assert.Equal(t, TierStrongBuy, comp.Verdict.Tier)
	assert.Equal(t, "Strong Buy / Core Holding", comp.Verdict.Label.Text)
}

func TestScoreThreeMetricAllWorst(t *testing.T) {
	e := NewEngine()
	comp, err := e.ScoreNamed("three", readings("", map[Metric]float64{
		MetricPE: 45, MetricROE: 5, MetricDebt: 2.0,
	}))
	require.NoError(t, err)

	for _, r := range comp.Results {
		assert.Equal(t, 0, r.Score, r.Metric)
	}
	assert.Equal(t, 0, comp.Score)
	assert.Equal(t, TierAvoid, comp.Verdict.Tier)
	assert.Equal(t, "High Risk / Avoid", comp.Verdict.Label.Text)
}

func TestScoreIgnoresMetricsOutsideProfile(t *testing.T) {
	e := NewEngine()
	comp, err := e.ScoreNamed("four", readings("", map[Metric]float64{
		MetricPE: 15, MetricROE: 22, MetricDebt: 0.5, MetricPS: 1.5,
		MetricPB: 99, MetricMargin: 1,
	}))
	require.NoError(t, err)

	assert.Equal(t, 100, comp.Score)
	assert.Equal(t, 100, comp.Max)
	_, ok := comp.Result(MetricPB)
	assert.False(t, ok)
}

func TestScoreMissingMetricIsNeutralNotExcluded(t *testing.T) {
	e := NewEngine()
	comp, err := e.ScoreNamed("five", readings("", map[Metric]float64{
		MetricPE: 15, MetricROE: 22, MetricDebt: 0.5, MetricPS: 1.5,
	}))
	require.NoError(t, err)

	pb, ok := comp.Result(MetricPB)
	require.True(t, ok)
	assert.Equal(t, GradeNeutral, pb.Grade)
	assert.Equal(t, 0, pb.Score)
	assert.Nil(t, pb.Value)
	assert.Equal(t, 80, comp.Score)
	assert.Equal(t, 100, comp.Max)
	assert.Equal(t, TierStrongBuy, comp.Verdict.Tier)
}

func TestScoreMiddleBuckets(t *testing.T) {
	e := NewEngine()
	comp, err := e.ScoreNamed("four", readings("", map[Metric]float64{
		MetricPE: 25, MetricROE: 10, MetricDebt: 1.0, MetricPS: 3,
	}))
	require.NoError(t, err)
	assert.Equal(t, 48, comp.Score)
	assert.Equal(t, TierAvoid, comp.Verdict.Tier)
}

func TestScoreDualProfileSecondary(t *testing.T) {
	e := NewEngine()
	comp, err := e.ScoreNamed("dual", readings("Technology", map[Metric]float64{
		MetricPE: 15, MetricROE: 12, MetricDebt: 2.0, MetricPS: 6, MetricPB: 6,
	}))
	require.NoError(t, err)

	// primary: 20 + 0 + 20 + 10 + 0
	assert.Equal(t, 50, comp.Score)
	assert.Equal(t, TierHold, comp.Verdict.Tier)
	// classic: 33 + 15 + 0
	assert.Equal(t, 48, comp.Secondary)
	assert.Equal(t, 99, comp.SecondaryMax)

	ps, ok := comp.Result(MetricPS)
	require.True(t, ok)
	assert.Nil(t, ps.Secondary)
}

func TestRateOutsideProfileKeepsLabel(t *testing.T) {
	e := NewEngine()
	p, _ := e.Profile("three")
	res, err := e.Rate(NewReading(MetricMargin, Value(25), ""), p)
	require.NoError(t, err)
	assert.Equal(t, GradeBest, res.Grade)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 0, res.Max)
}

func TestRateUnsupportedMetricFails(t *testing.T) {
	e := NewEngine()
	_, err := e.Rate(NewReading(Metric("BETA"), Value(1), ""), e.DefaultProfile())
	assert.ErrorIs(t, err, ErrUnsupportedMetric)
}

func TestProfileLookup(t *testing.T) {
	e := NewEngine()

	p, err := e.Profile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfileName, p.Name)

	p, err = e.Profile(" THREE ")
	require.NoError(t, err)
	assert.Equal(t, "three", p.Name)

	_, err = e.Profile("seven")
	assert.ErrorIs(t, err, ErrUnknownProfile)

	require.NoError(t, e.SetDefault("four"))
	assert.Equal(t, "four", e.DefaultProfile().Name)
	assert.ErrorIs(t, e.SetDefault("nope"), ErrUnknownProfile)
}

func TestRegisterValidatesProfile(t *testing.T) {
	e := NewEngine()

	custom := Profile{
		Name:    "Lean",
		Weights: uniform(50, 25, MetricPE, MetricDebt),
	}
	require.NoError(t, e.Register(custom))
	p, err := e.Profile("lean")
	require.NoError(t, err)
	assert.Equal(t, 100, p.Max())

	bad := []Profile{
		{Name: "", Weights: uniform(20, 10, MetricPE)},
		{Name: "empty"},
		{Name: "dupe", Weights: uniform(20, 10, MetricPE, MetricPE)},
		{Name: "unknown", Weights: uniform(20, 10, Metric("BETA"))},
		{Name: "inverted", Weights: []Weight{{Metric: MetricPE, Points: Scale{Best: 5, Middle: 10}}}},
		{Name: "zero", Weights: uniform(0, 0, MetricPE)},
	}
	for _, p := range bad {
		err := e.Register(p)
		assert.ErrorIs(t, err, ErrInvalidProfile, p.Name)
	}
}

func TestRegisterNormalisesMetricKeys(t *testing.T) {
	e := NewEngine()

	weights := []Weight{
		{Metric: Metric("pe"), Points: Scale{Best: 50, Middle: 25}},
		{Metric: Metric("d/e"), Points: Scale{Best: 50, Middle: 25}},
	}
	require.NoError(t, e.Register(Profile{Name: "lower", Weights: weights}))
	assert.Equal(t, Metric("pe"), weights[0].Metric, "caller's weights are left alone")

	p, err := e.Profile("lower")
	require.NoError(t, err)
	assert.Equal(t, []Metric{MetricPE, MetricDebt}, p.Metrics())

	comp, err := e.Score(p, ReadingsFromValues(map[Metric]*float64{
		MetricPE:   Value(15),
		MetricDebt: Value(0.5),
	}, ""))
	require.NoError(t, err)
	assert.Equal(t, 100, comp.Score)

	dupe := Profile{Name: "alias-dupe", Weights: []Weight{
		{Metric: Metric("PE"), Points: Scale{Best: 20, Middle: 10}},
		{Metric: Metric("p/e"), Points: Scale{Best: 20, Middle: 10}},
	}}
	assert.ErrorIs(t, e.Register(dupe), ErrInvalidProfile)
}

func TestProfilesSortedByName(t *testing.T) {
	names := []string{}
	for _, p := range NewEngine().Profiles() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"dual", "five", "four", "fund", "quality", "three"}, names)
}

func TestVerdictFor(t *testing.T) {
	tests := []struct {
		score, max int
		want       Tier
	}{
		{100, 100, TierStrongBuy},
		{80, 100, TierStrongBuy},
		{79, 100, TierHold},
		{50, 100, TierHold},
		{49, 100, TierAvoid},
		{0, 100, TierAvoid},
		{40, 50, TierStrongBuy},
		{0, 0, TierAvoid},
	}
	for _, tt := range tests {
		v := VerdictFor(tt.score, tt.max)
		assert.Equal(t, tt.want, v.Tier, "%d/%d", tt.score, tt.max)
	}
}
