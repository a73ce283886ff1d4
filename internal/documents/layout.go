package documents

import (
	"fmt"

	"github.com/go-pdf/fpdf"
)

// Page geometry in millimetres: A4 with a centred 6.5 inch content column.
const (
	mmPerInch    = 25.4
	mmPerPt      = mmPerInch / 72
	contentWidth = 6.5 * mmPerInch
	marginX      = (8.27 - 6.5) / 2 * mmPerInch
	marginY      = 50 * mmPerPt
	fontFamily   = "Helvetica"
)

func inch(inches float64) float64 {
	return inches * mmPerInch
}

// cell is one column of a row. Text wraps within w.
type cell struct {
	w     float64
	text  string
	bold  bool
	align string
}

// page wraps an fpdf document with the report layout helpers.
type page struct {
	pdf  *fpdf.Fpdf
	tr   func(string) string
	size float64 // current font size in points
}

func (r *Renderer) newPage() *page {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetMargins(marginX, marginY, marginX)
	pdf.SetAutoPageBreak(true, marginY)
	pdf.AliasNbPages("")
	pdf.SetCreator("mySettle", true)

	p := &page{
		pdf:  pdf,
		tr:   pdf.UnicodeTranslatorFromDescriptor(""),
		size: 9,
	}
	pdf.SetHeaderFunc(p.header)
	pdf.SetFooterFunc(p.footer)
	pdf.AddPage()
	p.font(false, 9)
	return p
}

// header rules a line just above the content column.
func (p *page) header() {
	y := marginY - 10*mmPerPt
	p.pdf.SetLineWidth(mmPerPt)
	p.pdf.Line(marginX, y, marginX+contentWidth, y)
	p.pdf.SetY(marginY)
}

// footer rules a line below the content and prints "Muka surat N daripada M".
func (p *page) footer() {
	_, pageH := p.pdf.GetPageSize()
	lineY := pageH - 47*mmPerPt
	p.pdf.SetLineWidth(mmPerPt)
	p.pdf.Line(marginX, lineY, marginX+contentWidth, lineY)

	p.pdf.SetFont(fontFamily, "", 9)
	p.pdf.SetXY(marginX, lineY+1)
	text := fmt.Sprintf("Muka surat %d daripada {nb}", p.pdf.PageNo())
	p.pdf.CellFormat(contentWidth, 4, text, "", 0, "R", false, 0, "")
	p.pdf.SetFont(fontFamily, "", p.size)
}

func (p *page) font(bold bool, size float64) {
	style := ""
	if bold {
		style = "B"
	}
	p.size = size
	p.pdf.SetFont(fontFamily, style, size)
}

// lineHeight is the leading for the current font size.
func (p *page) lineHeight() float64 {
	return p.size * 1.25 * mmPerPt
}

func (p *page) space(mm float64) {
	p.pdf.Ln(mm)
}

// title prints a centred bold line.
func (p *page) title(text string, size float64) {
	p.font(true, size)
	p.pdf.CellFormat(contentWidth, p.lineHeight()+1, p.tr(text), "", 1, "C", false, 0, "")
	p.font(false, 9)
}

// paragraph prints wrapped text across the content width.
func (p *page) paragraph(text string, bold bool, align string) {
	size := p.size
	p.font(bold, size)
	p.pdf.SetX(marginX)
	p.pdf.MultiCell(contentWidth, p.lineHeight(), p.tr(text), "", align, false)
	p.font(false, size)
}

// row prints cells side by side, each wrapping within its width, and moves
// below the tallest one. The row starts a new page if it would not fit.
func (p *page) row(cols ...cell) {
	lh := p.lineHeight()
	size := p.size

	lines := 1
	for _, c := range cols {
		p.font(c.bold, size)
		if n := p.lineCount(c.text, c.w); n > lines {
			lines = n
		}
	}
	height := float64(lines) * lh

	_, pageH := p.pdf.GetPageSize()
	if p.pdf.GetY()+height > pageH-marginY {
		p.pdf.AddPage()
	}

	x, y := marginX, p.pdf.GetY()
	for _, c := range cols {
		align := c.align
		if align == "" {
			align = "L"
		}
		p.font(c.bold, size)
		p.pdf.SetXY(x, y)
		p.pdf.MultiCell(c.w, lh, p.tr(c.text), "", align, false)
		x += c.w
	}

	p.font(false, size)
	p.pdf.SetXY(marginX, y+height)
}

// lineCount is how many lines text wraps to within w in the current font.
func (p *page) lineCount(text string, w float64) int {
	if text == "" {
		return 1
	}
	// SplitText indexes glyph widths by rune, so feed it the single-byte
	// encoding one rune per byte.
	encoded := []byte(p.tr(text))
	runes := make([]rune, len(encoded))
	for i, b := range encoded {
		runes[i] = rune(b)
	}
	if n := len(p.pdf.SplitText(string(runes), w)); n > 1 {
		return n
	}
	return 1
}

// field returns a label, separator, value triple of cells.
func field(label string, labelW float64, value string, valueW float64) []cell {
	return []cell{
		{w: labelW, text: label},
		{w: inch(0.1), text: ":"},
		{w: valueW, text: value},
	}
}

// cells flattens groups of cells into one row.
func cells(groups ...[]cell) []cell {
	var out []cell
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
