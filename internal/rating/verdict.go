package rating

// Tier is the coarse verdict bucket for a composite score.
type Tier string

const (
	TierStrongBuy Tier = "strong_buy"
	TierHold      Tier = "hold"
	TierAvoid     Tier = "avoid"
)

// TierRule maps a minimum percentage of the profile maximum to a tier.
type TierRule struct {
	Tier       Tier    `json:"tier"`
	MinPercent float64 `json:"min_percent"`
	Label      Label   `json:"label"`
	Note       string  `json:"note"`
}

// DefaultTiers is the 80/50 convention, ordered from best to worst. The
// last rule is the catch-all.
var DefaultTiers = []TierRule{
	{
		Tier:       TierStrongBuy,
		MinPercent: 80,
		Label:      Label{Text: "Strong Buy / Core Holding", Icon: "💎"},
		Note:       "Excellent value and safety.",
	},
	{
		Tier:       TierHold,
		MinPercent: 50,
		Label:      Label{Text: "Hold / Average", Icon: "⚖️"},
		Note:       "Good, but potentially overvalued or high debt.",
	},
	{
		Tier:       TierAvoid,
		MinPercent: 0,
		Label:      Label{Text: "High Risk / Avoid", Icon: "🚩"},
		Note:       "Poor fundamentals or extreme hype pricing.",
	},
}

// Verdict is the tier a composite score lands in.
type Verdict struct {
	Tier    Tier    `json:"tier"`
	Label   Label   `json:"label"`
	Note    string  `json:"note"`
	Score   int     `json:"score"`
	Max     int     `json:"max"`
	Percent float64 `json:"percent"`
}

// VerdictFor maps score out of max to a tier. Scores are compared as a
// percentage of max so profiles that do not total 100 use the same cut-offs.
func VerdictFor(score, max int) Verdict {
	pct := 0.0
	if max > 0 {
		pct = float64(score) / float64(max) * 100
	}

	rule := DefaultTiers[len(DefaultTiers)-1]
	for _, r := range DefaultTiers {
		if pct >= r.MinPercent {
			rule = r
			break
		}
	}

	return Verdict{
		Tier:    rule.Tier,
		Label:   rule.Label,
		Note:    rule.Note,
		Score:   score,
		Max:     max,
		Percent: pct,
	}
}
