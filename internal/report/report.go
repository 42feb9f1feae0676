package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/stockscore/internal/analysis"
	"github.com/seenimoa/stockscore/internal/rating"
	"github.com/seenimoa/stockscore/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Report rendering: one analysis, many output formats
// ════════════════════════════════════════════════════════════════════

// Format specifies the output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// ErrUnknownFormat is returned for an unrecognised output format.
var ErrUnknownFormat = eris.New("report: unknown format")

// ParseFormat resolves a user-supplied format name. "md" and "text" are
// accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table", "text":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", eris.Wrapf(ErrUnknownFormat, "format %q", s)
}

// Config controls report generation behaviour.
type Config struct {
	Title       string // custom report title (optional)
	Author      string // shown in HTML and PDF metadata
	PageSize    string // PDF page size, default A4
	Methodology bool   // append the threshold table and tier list
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Author:      "stockscore",
		PageSize:    "A4",
		Methodology: true,
	}
}

func (c Config) title(a *analysis.Analysis) string {
	if c.Title != "" {
		return c.Title
	}
	if a.Name != "" {
		return fmt.Sprintf("%s (%s) Health Check", a.Name, a.Ticker)
	}
	return a.Ticker + " Health Check"
}

// Render writes a in the requested format.
func Render(w io.Writer, a *analysis.Analysis, format Format, cfg Config) error {
	if a == nil {
		return eris.New("report: analysis is nil")
	}

	switch format {
	case FormatTable, "":
		_, err := io.WriteString(w, Table(a))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(a), "encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(a); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(a, cfg))
		return err
	case FormatHTML:
		html, err := HTML(a, cfg)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	case FormatPDF:
		data, err := PDF(a, cfg)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return eris.Wrapf(ErrUnknownFormat, "format %q", format)
}

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

// Table renders a terminal-friendly report with aligned columns.
func Table(a *analysis.Analysis) string {
	var sb strings.Builder
	line := strings.Repeat("═", 60)
	thinLine := strings.Repeat("─", 58)

	sb.WriteString(line + "\n")
	if a.Name != "" {
		fmt.Fprintf(&sb, "  %s (%s)\n", a.Name, a.Ticker)
	} else {
		fmt.Fprintf(&sb, "  %s\n", a.Ticker)
	}
	if a.Sector != "" {
		fmt.Fprintf(&sb, "  Sector: %s\n", a.Sector)
	}
	fmt.Fprintf(&sb, "  Profile: %s\n", a.Composite.Profile)
	if a.Price != nil {
		fmt.Fprintf(&sb, "  Price: %s (%s since %s)\n",
			utils.FormatPrice(a.Price.LastClose, a.Currency),
			utils.FormatPercent(a.Price.ChangePct),
			a.Price.Start.Format("2006-01-02"))
	}
	sb.WriteString(line + "\n")

	fmt.Fprintf(&sb, "  %-18s %10s   %-22s %s\n", "METRIC", "VALUE", "STATUS", "POINTS")
	sb.WriteString("  " + thinLine + "\n")
	for _, r := range a.Composite.Results {
		fmt.Fprintf(&sb, "  %-18s %10s   %-22s %d/%d\n",
			r.Name, utils.FormatRatio(r.Value), r.Label.String(), r.Score, r.Max)
	}
	sb.WriteString("  " + thinLine + "\n")
	fmt.Fprintf(&sb, "  %-18s %10s   %s\n", "TOTAL SCORE",
		fmt.Sprintf("%d/%d", a.Composite.Score, a.Composite.Max), a.Composite.Verdict.Label.String())
	if a.Composite.SecondaryMax > 0 {
		fmt.Fprintf(&sb, "  %-18s %10s\n", "CLASSIC SCORE",
			fmt.Sprintf("%d/%d", a.Composite.Secondary, a.Composite.SecondaryMax))
	}
	fmt.Fprintf(&sb, "  %s\n", a.Composite.Verdict.Note)

	if len(a.Context) > 0 {
		sb.WriteString("\n  Context (not scored)\n")
		for _, r := range a.Context {
			fmt.Fprintf(&sb, "  %-18s %10s   %s\n", r.Name, utils.FormatRatio(r.Value), r.Label.String())
		}
	}

	if len(a.Headlines) > 0 {
		sb.WriteString("\n  Headlines\n")
		for _, h := range a.Headlines {
			fmt.Fprintf(&sb, "  • %s\n", h.Title)
		}
	}

	if a.Narrative != nil {
		sb.WriteString("\n  Narrative\n")
		sb.WriteString(indent(a.Narrative.Text, "  "))
		sb.WriteString("\n")
	} else if a.NarrativeError != "" {
		fmt.Fprintf(&sb, "\n  Narrative unavailable: %s\n", a.NarrativeError)
	}

	for _, w := range a.Warnings {
		fmt.Fprintf(&sb, "  ! %s\n", w)
	}

	sb.WriteString(line + "\n")
	return sb.String()
}

// ProfileTable renders the registered profiles for the CLI.
func ProfileTable(profiles []rating.Profile, defaultName string) string {
	var sb strings.Builder
	for _, p := range profiles {
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s %-8s %s\n", marker, p.Name, p.Summary())
		if p.Description != "" {
			fmt.Fprintf(&sb, "           %s\n", p.Description)
		}
	}
	return sb.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
