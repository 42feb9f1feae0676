package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/seenimoa/stockscore/internal/analysis"
)

// ════════════════════════════════════════════════════════════════════
// PDF Generator: markdown AST rendered with fpdf core fonts
// ════════════════════════════════════════════════════════════════════

const (
	pdfFont       = "Arial"
	pdfSize       = 10.0
	pdfLineHeight = 5.0
)

// PDF renders the report as a PDF document.
func PDF(a *analysis.Analysis, cfg Config) ([]byte, error) {
	if a == nil {
		return nil, eris.New("report: analysis is nil")
	}

	pageSize := cfg.PageSize
	if pageSize == "" {
		pageSize = "A4"
	}

	pdf := fpdf.New("P", "mm", pageSize, "")
	pdf.SetTitle(cfg.title(a), true)
	pdf.SetAuthor(cfg.Author, true)
	pdf.SetCreator("stockscore", true)
	if !a.CreatedAt.IsZero() {
		pdf.SetCreationDate(a.CreatedAt)
		pdf.SetModificationDate(a.CreatedAt)
	}
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(pdfFont, "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, "Educational use only. Not financial advice.", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("%d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.AddPage()
	pdf.SetFont(pdfFont, "", pdfSize)

	source := []byte(markdown(a, cfg, false))
	doc := md.Parser().Parse(text.NewReader(source))

	r := &pdfRenderer{
		pdf:    pdf,
		source: source,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
	}
	if err := ast.Walk(doc, r.walk); err != nil {
		return nil, eris.Wrap(err, "render pdf")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, eris.Wrap(err, "write pdf")
	}

	zap.L().Debug("pdf generated", zap.String("ticker", a.Ticker), zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// WritePDF renders the report and writes it to path, creating parent
// directories as needed.
func WritePDF(path string, a *analysis.Analysis, cfg Config) error {
	data, err := PDF(a, cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "create output directory")
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	tr        func(string) string
	bold      bool
	italic    bool
	listLevel int
}

func (r *pdfRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(pdfFont, style, pdfSize)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		r.heading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			r.pdf.Ln(pdfLineHeight + 2)
		}
	case ast.KindText:
		if entering {
			t := n.(*ast.Text)
			r.pdf.Write(pdfLineHeight, r.tr(string(t.Segment.Value(r.source))))
			if t.SoftLineBreak() {
				r.pdf.Write(pdfLineHeight, " ")
			}
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case ast.KindBlockquote:
		r.italic = entering
		r.updateFont()
	case ast.KindList:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			r.pdf.Ln(2)
		}
	case ast.KindListItem:
		if entering {
			left, _, _, _ := r.pdf.GetMargins()
			r.pdf.SetX(left + float64(r.listLevel-1)*5)
			r.pdf.Write(pdfLineHeight, "- ")
		} else {
			r.pdf.Ln(pdfLineHeight)
		}
	case ast.KindThematicBreak:
		if entering {
			left, _, right, _ := r.pdf.GetMargins()
			w, _ := r.pdf.GetPageSize()
			r.pdf.Ln(2)
			r.pdf.Line(left, r.pdf.GetY(), w-right, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case extast.KindTable:
		if entering {
			r.table(n)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) heading(n *ast.Heading, entering bool) {
	if !entering {
		r.pdf.Ln(pdfLineHeight + 3)
		r.updateFont()
		return
	}
	size := 11.0
	switch n.Level {
	case 1:
		size = 16
	case 2:
		size = 13
	}
	if r.pdf.GetY() > 20 {
		r.pdf.Ln(3)
	}
	r.pdf.SetFont(pdfFont, "B", size)
}

// table collects header and body rows and draws them as a grid with equal
// width columns.
func (r *pdfRenderer) table(n ast.Node) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		var row []string
		for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
			row = append(row, r.tr(string(cell.Text(r.source))))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	left, _, right, _ := r.pdf.GetMargins()
	pageW, _ := r.pdf.GetPageSize()
	colW := (pageW - left - right) / float64(len(rows[0]))

	r.pdf.Ln(1)
	for i, row := range rows {
		style := ""
		fill := false
		if i == 0 {
			style = "B"
			fill = true
			r.pdf.SetFillColor(230, 230, 230)
		}
		if i == len(rows)-1 && len(row) > 0 && row[0] == "TOTAL SCORE" {
			style = "B"
		}
		r.pdf.SetFont(pdfFont, style, 9)
		for j := range rows[0] {
			cell := ""
			if j < len(row) {
				cell = fit(r.pdf, row[j], colW-2)
			}
			r.pdf.CellFormat(colW, 7, cell, "1", 0, "L", fill, 0, "")
		}
		r.pdf.Ln(-1)
	}
	r.pdf.Ln(3)
	r.updateFont()
}

// fit truncates s so it renders within w at the current font.
func fit(pdf *fpdf.Fpdf, s string, w float64) string {
	if pdf.GetStringWidth(s) <= w {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > w {
		s = s[:len(s)-1]
	}
	return s + "..."
}
