package rating

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// Result is a classified reading with its points under a profile.
type Result struct {
	Metric    Metric   `json:"metric"`
	Name      string   `json:"name"`
	Value     *float64 `json:"value"`
	Label     Label    `json:"label"`
	Grade     Grade    `json:"grade"`
	Score     int      `json:"score"`
	Max       int      `json:"max"`
	Secondary *int     `json:"secondary,omitempty"`
}

// Composite is the summed outcome of one scoring run.
type Composite struct {
	Profile      string   `json:"profile"`
	Results      []Result `json:"results"`
	Score        int      `json:"score"`
	Max          int      `json:"max"`
	Secondary    int      `json:"secondary,omitempty"`
	SecondaryMax int      `json:"secondary_max,omitempty"`
	Verdict      Verdict  `json:"verdict"`
}

// Result returns the result for metric m, if it was scored.
func (c Composite) Result(m Metric) (Result, bool) {
	for _, r := range c.Results {
		if r.Metric == m {
			return r, true
		}
	}
	return Result{}, false
}

// Engine scores readings against a registry of named profiles. Register
// profiles during setup; after that the engine is read-only and safe for
// concurrent use.
type Engine struct {
	profiles    map[string]Profile
	defaultName string
}

// NewEngine returns an engine preloaded with BuiltinProfiles.
func NewEngine() *Engine {
	e := &Engine{
		profiles:    make(map[string]Profile),
		defaultName: DefaultProfileName,
	}
	for _, p := range BuiltinProfiles() {
		e.profiles[p.Name] = p
	}
	return e
}

// Register validates p and adds it, replacing any profile of the same name.
// Metric keys are normalised the way ParseMetric reads them, so "pe" and
// "p/e" both name MetricPE.
func (e *Engine) Register(p Profile) error {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	p.Weights = slices.Clone(p.Weights)
	for i, w := range p.Weights {
		if m, err := ParseMetric(string(w.Metric)); err == nil {
			p.Weights[i].Metric = m
		}
	}
	if err := p.Validate(); err != nil {
		return err
	}
	e.profiles[p.Name] = p
	return nil
}

// SetDefault changes the profile used when a request names none.
func (e *Engine) SetDefault(name string) error {
	p, err := e.Profile(name)
	if err != nil {
		return err
	}
	e.defaultName = p.Name
	return nil
}

// DefaultProfile returns the engine's default profile.
func (e *Engine) DefaultProfile() Profile {
	return e.profiles[e.defaultName]
}

// Profile looks up a profile by name; an empty name selects the default.
func (e *Engine) Profile(name string) (Profile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = e.defaultName
	}
	p, ok := e.profiles[name]
	if !ok {
		return Profile{}, eris.Wrapf(ErrUnknownProfile, "profile %q", name)
	}
	return p, nil
}

// Profiles returns every registered profile ordered by name.
func (e *Engine) Profiles() []Profile {
	return sortedProfiles(e.profiles)
}

// Rate classifies r and attaches points from p's scale for r.Metric. A
// metric the profile does not score still gets its label, with zero points
// and zero max.
func (e *Engine) Rate(r Reading, p Profile) (Result, error) {
	c, err := Classify(r)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Metric: r.Metric,
		Name:   r.Metric.DisplayName(),
		Value:  r.Value,
		Label:  c.Label,
		Grade:  c.Grade,
	}
	if !c.Grade.scored() {
		res.Value = nil
	}

	w, ok := p.weight(r.Metric)
	if !ok {
		return res, nil
	}
	res.Score = w.Points.Points(c.Grade)
	res.Max = w.Points.Best
	if w.Secondary != nil {
		sec := w.Secondary.Points(c.Grade)
		res.Secondary = &sec
	}
	return res, nil
}

// Score rates every metric in p and sums the points. Readings for metrics
// outside the profile are ignored; profile metrics with no reading score as
// neutral.
func (e *Engine) Score(p Profile, readings Readings) (Composite, error) {
	comp := Composite{
		Profile:      p.Name,
		Results:      make([]Result, 0, len(p.Weights)),
		Max:          p.Max(),
		SecondaryMax: p.SecondaryMax(),
	}

	for _, w := range p.Weights {
		r, ok := readings[w.Metric]
		if !ok {
			r = Reading{}
		}
		r.Metric = w.Metric

		res, err := e.Rate(r, p)
		if err != nil {
			return Composite{}, err
		}
		comp.Score += res.Score
		if res.Secondary != nil {
			comp.Secondary += *res.Secondary
		}
		comp.Results = append(comp.Results, res)
	}

	comp.Verdict = VerdictFor(comp.Score, comp.Max)
	return comp, nil
}

// ScoreNamed resolves the profile by name and scores readings under it.
func (e *Engine) ScoreNamed(name string, readings Readings) (Composite, error) {
	p, err := e.Profile(name)
	if err != nil {
		return Composite{}, err
	}
	return e.Score(p, readings)
}

func (g Grade) scored() bool { return g != GradeNeutral }
