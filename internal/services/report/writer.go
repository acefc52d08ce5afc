// -----------------------------------------------------------------------
// Report Writer - Markdown AST laid out on an A4 page grid
// -----------------------------------------------------------------------

package report

import (
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

const (
	leftMargin    = 10.0
	pageTextWidth = 190.0
	pageBreakY    = 282.0

	bodyFontSize  = 9.0
	tableFontSize = 8.0
	tableLineH    = 4.0
	maxCellLines  = 8
	minColWidth   = 14.0
	maxColWidth   = pageTextWidth / 2.5
)

// pdfWriter walks a parsed markdown tree and draws it. Only the node kinds
// the report builder emits are handled; anything else flows through as
// plain text.
type pdfWriter struct {
	pdf       *fpdf.Fpdf
	source    []byte
	bold      bool
	italic    bool
	listDepth int
}

func (w *pdfWriter) render(doc ast.Node) error {
	return ast.Walk(doc, w.walk)
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		w.heading(node, entering)
	case *ast.Paragraph:
		if !entering {
			w.pdf.Ln(6)
		}
	case *ast.Text:
		if entering {
			w.pdf.Write(5, string(node.Text(w.source)))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.setBodyFont()
	case *ast.List:
		if entering {
			w.listDepth++
		} else {
			w.listDepth--
			if w.listDepth == 0 {
				w.pdf.Ln(2)
			}
		}
	case *ast.ListItem:
		if entering {
			w.pdf.Ln(5)
			w.pdf.SetX(leftMargin + float64(w.listDepth)*5)
			w.pdf.Write(5, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			w.pdf.Ln(2)
			y := w.pdf.GetY()
			w.pdf.Line(leftMargin, y, leftMargin+pageTextWidth, y)
			w.pdf.Ln(4)
		}
	case *extast.Table:
		if entering {
			w.table(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (w *pdfWriter) heading(n *ast.Heading, entering bool) {
	if entering {
		w.pdf.Ln(5)
		size := 11.0
		switch n.Level {
		case 1:
			size = 15
		case 2:
			size = 12
		}
		w.pdf.SetFont("Arial", "B", size)
		return
	}
	w.pdf.Ln(7)
	w.setBodyFont()
}

func (w *pdfWriter) setBodyFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont("Arial", style, bodyFontSize)
}

// table collects the header and body rows, sizes columns to the page, and
// draws row by row. The header wraps its single row in a TableHeader node.
func (w *pdfWriter) table(n *extast.Table) {
	var rows [][]string
	for section := n.FirstChild(); section != nil; section = section.NextSibling() {
		switch sec := section.(type) {
		case *extast.TableHeader:
			for child := sec.FirstChild(); child != nil; child = child.NextSibling() {
				if tr, ok := child.(*extast.TableRow); ok {
					rows = append(rows, w.cells(tr))
				}
			}
		case *extast.TableRow:
			rows = append(rows, w.cells(sec))
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	w.pdf.Ln(2)
	widths := w.columnWidths(rows)
	for i, row := range rows {
		w.tableRow(row, widths, i == 0)
	}
	w.pdf.Ln(3)
	w.setBodyFont()
}

func (w *pdfWriter) cells(row ast.Node) []string {
	var out []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if c, ok := cell.(*extast.TableCell); ok {
			out = append(out, string(c.Text(w.source)))
		}
	}
	return out
}

// columnWidths measures the widest content per column, clamps it, then
// scales every column so the table spans the full text width.
func (w *pdfWriter) columnWidths(rows [][]string) []float64 {
	cols := len(rows[0])
	widths := make([]float64, cols)
	w.pdf.SetFont("Arial", "", tableFontSize)
	for _, row := range rows {
		for i, cell := range row {
			if i >= cols {
				break
			}
			if wd := w.pdf.GetStringWidth(cell) + 4; wd > widths[i] {
				widths[i] = wd
			}
		}
	}
	total := 0.0
	for i := range widths {
		if widths[i] < minColWidth {
			widths[i] = minColWidth
		}
		if widths[i] > maxColWidth {
			widths[i] = maxColWidth
		}
		total += widths[i]
	}
	scale := pageTextWidth / total
	for i := range widths {
		widths[i] *= scale
	}
	return widths
}

func (w *pdfWriter) tableRow(cells []string, widths []float64, header bool) {
	if header {
		w.pdf.SetFont("Arial", "B", tableFontSize)
		w.pdf.SetFillColor(230, 230, 230)
	} else {
		w.pdf.SetFont("Arial", "", tableFontSize)
		w.pdf.SetFillColor(255, 255, 255)
	}

	lines := make([][]string, len(widths))
	height := 1
	for i := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		lines[i] = w.wrapCell(cell, widths[i]-2)
		if len(lines[i]) > height {
			height = len(lines[i])
		}
	}
	if height > maxCellLines {
		height = maxCellLines
	}

	rowHeight := float64(height)*tableLineH + 2
	y := w.pdf.GetY()
	if y+rowHeight > pageBreakY {
		w.pdf.AddPage()
		y = w.pdf.GetY()
	}

	x := leftMargin
	for i, cellLines := range lines {
		mode := "D"
		if header {
			mode = "FD"
		}
		w.pdf.Rect(x, y, widths[i], rowHeight, mode)
		w.pdf.SetXY(x+1, y+1)
		for l := 0; l < len(cellLines) && l < height; l++ {
			line := cellLines[l]
			if l == height-1 && len(cellLines) > height {
				line = w.ellipsize(line, widths[i]-2)
			}
			w.pdf.CellFormat(widths[i]-2, tableLineH, line, "", 2, "L", false, 0, "")
		}
		x += widths[i]
	}
	w.pdf.SetXY(leftMargin, y+rowHeight)
}

// wrapCell breaks cell text into lines that fit the column, measuring with
// the font currently selected on the page.
func (w *pdfWriter) wrapCell(cell string, width float64) []string {
	words := strings.Fields(cell)
	if len(words) == 0 {
		return []string{""}
	}
	space := w.pdf.GetStringWidth(" ")
	var lines []string
	line := words[0]
	lineWidth := w.pdf.GetStringWidth(words[0])
	for _, word := range words[1:] {
		wordWidth := w.pdf.GetStringWidth(word)
		if lineWidth+space+wordWidth <= width {
			line += " " + word
			lineWidth += space + wordWidth
			continue
		}
		lines = append(lines, line)
		line = word
		lineWidth = wordWidth
	}
	return append(lines, line)
}

func (w *pdfWriter) ellipsize(line string, width float64) string {
	runes := []rune(line)
	for w.pdf.GetStringWidth(string(runes)+"...") > width && len(runes) > 3 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
