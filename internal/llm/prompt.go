package llm

import (
	"fmt"
	"strings"

	"github.com/seenimoa/stockscore/internal/rating"
	"github.com/seenimoa/stockscore/pkg/models"
	"github.com/seenimoa/stockscore/pkg/utils"
)

// SystemPrompt frames the model as a cautious equity analyst.
const SystemPrompt = `You are a concise equity analyst. You are given a rules-based
fundamental health score for one stock. Explain in 3-5 short sentences what the
score says about valuation, profitability and leverage, mention anything notable in
the price trend or headlines, and end with one sentence of caveats. Do not invent
numbers that are not in the input and do not give personalised investment advice.`

// PromptData is everything the narrative may reference.
type PromptData struct {
	Ticker    string
	Name      string
	Sector    string
	Composite rating.Composite
	Context   []rating.Result // informational ratings outside the profile
	Price     *models.PriceSummary
	Currency  string
	Headlines []models.NewsArticle
}

// BuildPrompt renders d into a single-turn prompt.
func BuildPrompt(d PromptData) Prompt {
	var b strings.Builder

	name := d.Ticker
	if d.Name != "" {
		name = fmt.Sprintf("%s (%s)", d.Name, d.Ticker)
	}
	fmt.Fprintf(&b, "Stock: %s\n", name)
	if d.Sector != "" {
		fmt.Fprintf(&b, "Sector: %s\n", d.Sector)
	}
	fmt.Fprintf(&b, "Scoring profile: %s\n\n", d.Composite.Profile)

	b.WriteString("Metric ratings:\n")
	for _, r := range d.Composite.Results {
		fmt.Fprintf(&b, "- %s: %s -> %s (%d/%d points)\n",
			r.Name, utils.FormatRatio(r.Value), r.Label, r.Score, r.Max)
	}
	for _, r := range d.Context {
		fmt.Fprintf(&b, "- %s: %s -> %s (context only)\n", r.Name, utils.FormatRatio(r.Value), r.Label)
	}

	v := d.Composite.Verdict
	fmt.Fprintf(&b, "\nComposite score: %d/%d (%.0f%%)\n", d.Composite.Score, d.Composite.Max, v.Percent)
	if d.Composite.SecondaryMax > 0 {
		fmt.Fprintf(&b, "Secondary score: %d/%d\n", d.Composite.Secondary, d.Composite.SecondaryMax)
	}
	fmt.Fprintf(&b, "Verdict: %s\n", v.Label)

	if p := d.Price; p != nil {
		fmt.Fprintf(&b, "\nPrice trend (%d sessions): %s -> %s (%s), range %s - %s\n",
			p.Bars,
			utils.FormatPrice(p.FirstClose, d.Currency),
			utils.FormatPrice(p.LastClose, d.Currency),
			utils.FormatPercent(p.ChangePct),
			utils.FormatPrice(p.Low, d.Currency),
			utils.FormatPrice(p.High, d.Currency),
		)
	}

	if len(d.Headlines) > 0 {
		b.WriteString("\nRecent headlines:\n")
		for _, h := range d.Headlines {
			fmt.Fprintf(&b, "- %s\n", h.Title)
		}
	}

	return Prompt{System: SystemPrompt, User: b.String()}
}
