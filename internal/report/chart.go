package report

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/seenimoa/stockscore/internal/analysis"
	"github.com/seenimoa/stockscore/internal/rating"
	"github.com/seenimoa/stockscore/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// SVG Charts
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 800)
	Height       int    // SVG height in pixels (default: 400)
	MarginTop    int    // top margin
	MarginRight  int    // right margin
	MarginBottom int    // bottom margin
	MarginLeft   int    // left margin
	BgColor      string // background color
	GridColor    string // grid line color
	TextColor    string // axis label color
	FontSize     int    // axis label font size
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        800,
		Height:       400,
		MarginTop:    40,
		MarginRight:  60,
		MarginBottom: 50,
		MarginLeft:   70,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// gradeColors maps a rating bucket to its bar color.
var gradeColors = map[rating.Grade]string{
	rating.GradeBest:    "#4caf50",
	rating.GradeMiddle:  "#ff9800",
	rating.GradeWorst:   "#ef5350",
	rating.GradeNeutral: "#bdbdbd",
}

// tierColors maps a verdict tier to the gauge color.
var tierColors = map[rating.Tier]string{
	rating.TierStrongBuy: "#4caf50",
	rating.TierHold:      "#ff9800",
	rating.TierAvoid:     "#ef5350",
}

// ════════════════════════════════════════════════════════════════════
// Price History
// ════════════════════════════════════════════════════════════════════

// PriceChart draws daily bars as candlesticks over a volume strip. Prices
// on the axis carry the currency code when it is known.
func PriceChart(bars []models.OHLCV, currency string, cfg ChartConfig) string {
	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	if len(bars) == 0 {
		return emptySVG(cfg, "No price history")
	}
	if cfg.Title == "" {
		cfg.Title = "Price History"
	}

	px, py, pw, ph := cfg.plotArea()

	minPrice, maxPrice := bars[0].Low, bars[0].High
	var maxVol int64
	for _, b := range bars {
		minPrice = math.Min(minPrice, b.Low)
		maxPrice = math.Max(maxPrice, b.High)
		if b.Volume > maxVol {
			maxVol = b.Volume
		}
	}
	priceRange := maxPrice - minPrice
	if priceRange < 0.01 {
		priceRange = 1
	}
	minPrice -= priceRange * 0.05
	maxPrice += priceRange * 0.05
	priceRange = maxPrice - minPrice

	n := len(bars)
	slot := float64(pw) / float64(n)
	bodyWidth := math.Min(slot, 12) * 0.7
	volHeight := float64(ph) * 0.2
	priceHeight := float64(ph) - volHeight

	priceToY := func(p float64) float64 {
		return float64(py) + priceHeight - (p-minPrice)/priceRange*priceHeight
	}
	centerX := func(i int) float64 {
		return float64(px) + float64(i)*slot + slot/2
	}

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	writeFrame(&sb, cfg)

	gridLines := 5
	for i := 0; i <= gridLines; i++ {
		price := minPrice + priceRange*float64(i)/float64(gridLines)
		y := priceToY(price)
		fmt.Fprintf(&sb, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor)
		fmt.Fprintf(&sb, `<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%.2f</text>`,
			px-5, y+4, cfg.FontSize, cfg.TextColor, price)
	}
	if currency != "" {
		fmt.Fprintf(&sb, `<text x="%d" y="%d" font-size="%d" fill="%s">%s</text>`,
			px+pw+5, py+10, cfg.FontSize, cfg.TextColor, escapeXML(currency))
	}

	if maxVol > 0 {
		for i, b := range bars {
			vh := float64(b.Volume) / float64(maxVol) * volHeight
			color := "#c8e6c9"
			if b.Close < b.Open {
				color = "#ffcdd2"
			}
			fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" opacity="0.6"/>`,
				centerX(i)-bodyWidth/2, float64(py+ph)-vh, bodyWidth, vh, color)
		}
	}

	for i, b := range bars {
		cx := centerX(i)
		color := "#26a69a"
		if b.Close < b.Open {
			color = "#ef5350"
		}
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1"/>`,
			cx, priceToY(b.High), cx, priceToY(b.Low), color)

		top := math.Min(priceToY(b.Open), priceToY(b.Close))
		h := math.Max(math.Abs(priceToY(b.Open)-priceToY(b.Close)), 1)
		fmt.Fprintf(&sb, `<rect class="candle" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`,
			cx-bodyWidth/2, top, bodyWidth, h, color)
	}

	step := max(n/6, 1)
	for i := 0; i < n; i += step {
		cx := centerX(i)
		fmt.Fprintf(&sb, `<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			cx, py+ph+18, cfg.FontSize-1, cfg.TextColor, bars[i].Timestamp.Format("02 Jan"))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Composite Score Gauge
// ════════════════════════════════════════════════════════════════════

// ScoreGauge draws a semicircular dial for the composite's share of the
// profile maximum, colored by verdict tier.
func ScoreGauge(v rating.Verdict, width int) string {
	if width == 0 {
		width = 240
	}
	height := width/2 + 40

	cx := float64(width) / 2
	cy := float64(width)/2 + 5
	radius := float64(width)/2 - 20

	pct := math.Max(0, math.Min(v.Percent, 100))
	color, ok := tierColors[v.Tier]
	if !ok {
		color = "#9e9e9e"
	}

	angle := math.Pi - pct/100*math.Pi
	endX := cx + radius*math.Cos(angle)
	endY := cy - radius*math.Sin(angle)
	needleX := cx + radius*0.85*math.Cos(angle)
	needleY := cy - radius*0.85*math.Sin(angle)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" class="gauge" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		width, height, width, height)
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="white"/>`, width, height)

	fmt.Fprintf(&sb, `<path d="M%.1f,%.1f A%.1f,%.1f 0 0,1 %.1f,%.1f" fill="none" stroke="#e0e0e0" stroke-width="12" stroke-linecap="round"/>`,
		cx-radius, cy, radius, radius, cx+radius, cy)
	if pct > 0 {
		// The filled arc never exceeds a half circle.
		fmt.Fprintf(&sb, `<path d="M%.1f,%.1f A%.1f,%.1f 0 0,1 %.1f,%.1f" fill="none" stroke="%s" stroke-width="12" stroke-linecap="round"/>`,
			cx-radius, cy, radius, radius, endX, endY, color)
	}

	fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333" stroke-width="2"/>`,
		cx, cy, needleX, needleY)
	fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="5" fill="#333"/>`, cx, cy)

	fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" font-size="20" font-weight="bold" fill="%s" text-anchor="middle">%d/%d</text>`,
		cx, cy+26, color, v.Score, v.Max)
	fmt.Fprintf(&sb, `<text x="%.1f" y="%d" font-size="11" fill="#666" text-anchor="middle">%s</text>`,
		cx, height-4, escapeXML(v.Label.Text))

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Per-Metric Points
// ════════════════════════════════════════════════════════════════════

// PointsChart draws one horizontal bar per scored metric: a grey track for
// the metric's maximum and a colored bar for the points earned.
func PointsChart(results []rating.Result, cfg ChartConfig) string {
	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
		cfg.Height = 60 + 36*len(results)
	}
	if len(results) == 0 {
		return emptySVG(cfg, "No scored metrics")
	}
	cfg.MarginLeft = 140
	if cfg.Title == "" {
		cfg.Title = "Points by Metric"
	}

	px, py, pw, ph := cfg.plotArea()

	maxPoints := 0
	for _, r := range results {
		maxPoints = max(maxPoints, r.Max)
	}
	if maxPoints == 0 {
		maxPoints = 1
	}
	scale := float64(pw) / float64(maxPoints)

	barH := math.Min(float64(ph)/float64(len(results))*0.7, 24)
	gap := (float64(ph) - barH*float64(len(results))) / float64(len(results)+1)

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	writeFrame(&sb, cfg)

	for i, r := range results {
		by := float64(py) + gap + float64(i)*(barH+gap)
		color := gradeColors[r.Grade]

		fmt.Fprintf(&sb, `<rect x="%d" y="%.1f" width="%.1f" height="%.1f" fill="#f0f0f0" rx="2"/>`,
			px, by, float64(r.Max)*scale, barH)
		if r.Score > 0 {
			fmt.Fprintf(&sb, `<rect class="points" x="%d" y="%.1f" width="%.1f" height="%.1f" fill="%s" rx="2"/>`,
				px, by, float64(r.Score)*scale, barH, color)
		}
		fmt.Fprintf(&sb, `<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, by+barH/2+4, cfg.FontSize, cfg.TextColor, escapeXML(r.Name))
		fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" font-size="%d" fill="%s">%d/%d</text>`,
			float64(px)+float64(r.Max)*scale+5, by+barH/2+4, cfg.FontSize, cfg.TextColor, r.Score, r.Max)
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Report Charts
// ════════════════════════════════════════════════════════════════════

// reportCharts is the set of charts embedded in the HTML report.
type reportCharts struct {
	Gauge  template.HTML
	Points template.HTML
	Price  template.HTML
}

func chartsFor(a *analysis.Analysis) reportCharts {
	c := reportCharts{
		Gauge:  template.HTML(ScoreGauge(a.Composite.Verdict, 0)),
		Points: template.HTML(PointsChart(a.Composite.Results, ChartConfig{})),
	}
	if len(a.History) > 0 {
		c.Price = template.HTML(PriceChart(a.History, a.Currency, ChartConfig{}))
	}
	return c
}

// ════════════════════════════════════════════════════════════════════
// SVG Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func writeFrame(sb *strings.Builder, cfg ChartConfig) {
	fmt.Fprintf(sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor)
	fmt.Fprintf(sb, `<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title))
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeXML(s string) string { return xmlEscaper.Replace(s) }
