package documents

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/mysettle/mysettle/pkg/ledger"
)

// rajahKasar lays out the rough sketch sheet: case metadata, then a framed
// box holding the sketch image or left blank for a hand drawing.
func (p *page) rajahKasar(doc *Document) {
	d := doc.Details

	p.font(false, 10)
	meta := func(label, value string) {
		p.row(
			cell{w: inch(1.8), text: label},
			cell{w: inch(0.2), text: ":", align: "C"},
			cell{w: inch(4.5), text: value},
		)
	}
	meta("NO REPOT POLIS", d.ReportNo)
	meta("NO KERTAS SIASATAN", orDefault(d.InvestigationNo, "-"))
	meta("PEGAWAI PENYIASAT", d.SketchOfficer)
	meta("TARIKH KEJADIAN", d.IncidentAt.In(ledger.CaseLocation).Format(stampLayout))
	meta("DICETAK OLEH", orDefault(d.PrintedBy, "-"))
	p.space(inch(0.3))

	p.title("RAJAH KASAR (TIDAK MENGIKUT SKALA)", 12)
	p.space(4)

	const padding = 5 * mmPerPt
	boxW := contentWidth
	boxH := inch(4) + 2*padding
	x, y := marginX, p.pdf.GetY()

	p.pdf.SetLineWidth(mmPerPt)
	p.pdf.Rect(x, y, boxW, boxH, "D")

	if doc.Sketch != nil {
		p.sketch(doc.Sketch, x+padding, y+padding, boxW-2*padding, boxH-2*padding)
	}

	p.pdf.SetXY(marginX, y+boxH)
}

// sketch draws img scaled to fit within 5.5x4 inches, centred in the area.
// A sketch that cannot be decoded leaves the box blank.
func (p *page) sketch(img *Image, x, y, w, h float64) {
	name := fmt.Sprintf("sketch-%d", len(img.Data))
	opts := fpdf.ImageOptions{ImageType: img.Type}
	info := p.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	if p.pdf.Err() || info == nil {
		p.pdf.ClearError()
		return
	}

	maxW, maxH := inch(5.5), inch(4)
	if maxW > w {
		maxW = w
	}
	if maxH > h {
		maxH = h
	}

	iw, ih := info.Width(), info.Height()
	if iw <= 0 || ih <= 0 {
		return
	}
	scale := maxW / iw
	if ih*scale > maxH {
		scale = maxH / ih
	}
	drawW, drawH := iw*scale, ih*scale

	p.pdf.ImageOptions(name, x+(w-drawW)/2, y+(h-drawH)/2, drawW, drawH, false, opts, 0, "")
}
