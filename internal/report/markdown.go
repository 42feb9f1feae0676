package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/seenimoa/stockscore/internal/analysis"
	"github.com/seenimoa/stockscore/internal/rating"
	"github.com/seenimoa/stockscore/pkg/utils"
)

// Markdown renders the metric table, verdict and supporting sections.
func Markdown(a *analysis.Analysis, cfg Config) string {
	return markdown(a, cfg, true)
}

// markdown renders the report. Icons are dropped for the PDF, whose core
// fonts cannot draw emoji.
func markdown(a *analysis.Analysis, cfg Config, icons bool) string {
	label := func(l rating.Label) string {
		if icons {
			return l.String()
		}
		return l.Text
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", cfg.title(a))

	var facts []string
	if a.Sector != "" {
		facts = append(facts, "**Sector:** "+a.Sector)
	}
	facts = append(facts, "**Profile:** "+a.Composite.Profile)
	if a.Price != nil {
		facts = append(facts, fmt.Sprintf("**Price:** %s (%s since %s)",
			utils.FormatPrice(a.Price.LastClose, a.Currency),
			utils.FormatPercent(a.Price.ChangePct),
			a.Price.Start.Format("2006-01-02")))
	}
	sb.WriteString(strings.Join(facts, " | ") + "\n\n")

	sb.WriteString("| Metric | Value | Status |\n")
	sb.WriteString("| --- | --- | --- |\n")
	for _, r := range a.Composite.Results {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", r.Name, utils.FormatRatio(r.Value), label(r.Label))
	}
	v := a.Composite.Verdict
	fmt.Fprintf(&sb, "| **TOTAL SCORE** | **%d/%d** | **%s** |\n\n", a.Composite.Score, a.Composite.Max, label(v.Label))

	if a.Composite.SecondaryMax > 0 {
		fmt.Fprintf(&sb, "Classic score: **%d/%d**\n\n", a.Composite.Secondary, a.Composite.SecondaryMax)
	}
	fmt.Fprintf(&sb, "> %s\n\n", v.Note)

	if len(a.Context) > 0 {
		sb.WriteString("## Context\n\n")
		sb.WriteString("| Metric | Value | Status |\n")
		sb.WriteString("| --- | --- | --- |\n")
		for _, r := range a.Context {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", r.Name, utils.FormatRatio(r.Value), label(r.Label))
		}
		sb.WriteString("\n")
	}

	if len(a.Headlines) > 0 {
		sb.WriteString("## Headlines\n\n")
		for _, h := range a.Headlines {
			if h.URL != "" {
				fmt.Fprintf(&sb, "- [%s](%s)", h.Title, h.URL)
			} else {
				fmt.Fprintf(&sb, "- %s", h.Title)
			}
			if !h.PublishedAt.IsZero() {
				fmt.Fprintf(&sb, " (%s)", h.PublishedAt.Format("2006-01-02"))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if a.Narrative != nil {
		sb.WriteString("## Narrative\n\n")
		sb.WriteString(strings.TrimSpace(a.Narrative.Text) + "\n\n")
		fmt.Fprintf(&sb, "_Generated by %s %s_\n\n", a.Narrative.Provider, a.Narrative.Model)
	} else if a.NarrativeError != "" {
		fmt.Fprintf(&sb, "_Narrative unavailable: %s_\n\n", a.NarrativeError)
	}

	if len(a.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range a.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
		sb.WriteString("\n")
	}

	if cfg.Methodology {
		sb.WriteString(methodology(icons))
	}
	return sb.String()
}

// Methodology renders the threshold table and verdict tiers.
func Methodology() string { return methodology(true) }

func methodology(icons bool) string {
	label := func(l rating.Label) string {
		if icons {
			return l.String()
		}
		return l.Text
	}

	var sb strings.Builder
	sb.WriteString("## Methodology\n\n")
	sb.WriteString("Each ratio is placed in one of three buckets. Boundaries are strict: ")
	sb.WriteString("a value equal to a cut-off falls into the worse bucket. Missing data is Neutral and scores 0.\n\n")
	sb.WriteString("| Metric | Best | Middle | Worst |\n")
	sb.WriteString("| --- | --- | --- | --- |\n")
	for _, t := range rating.Thresholds() {
		name := t.Metric.DisplayName()
		if t.Sector != "" {
			name += " (" + t.Sector + ")"
		}
		op := "<"
		if t.Higher {
			op = ">"
		}
		fmt.Fprintf(&sb, "| %s | %s %s %g | %s %s %g | %s |\n", name,
			label(t.Labels[0]), op, t.Best,
			label(t.Labels[1]), op, t.Middle,
			label(t.Labels[2]))
	}
	sb.WriteString("\n")

	sb.WriteString("Verdict tiers, as a share of the profile maximum:\n\n")
	for _, r := range rating.DefaultTiers {
		fmt.Fprintf(&sb, "- **%s** at %g%% or more: %s\n", label(r.Label), r.MinPercent, r.Note)
	}
	sb.WriteString("\n")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// HTML: markdown rendered with goldmark inside the page template
// ════════════════════════════════════════════════════════════════════

var md = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Linkify))

// HTML renders the markdown report as a standalone HTML page.
func HTML(a *analysis.Analysis, cfg Config) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(a, cfg)), &body); err != nil {
		return "", eris.Wrap(err, "render markdown")
	}

	tmpl, err := template.New("report").Parse(PageTemplate)
	if err != nil {
		return "", eris.Wrap(err, "parse template")
	}

	data := pageData{
		Title:       cfg.title(a),
		Author:      cfg.Author,
		Tier:        string(a.Composite.Verdict.Tier),
		GeneratedAt: a.CreatedAt.Format("02 Jan 2006, 15:04 MST"),
		Body:        template.HTML(body.String()),
		Charts:      chartsFor(a),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", eris.Wrap(err, "execute template")
	}
	return buf.String(), nil
}

type pageData struct {
	Title       string
	Author      string
	Tier        string
	GeneratedAt string
	Body        template.HTML
	Charts      reportCharts
}
