package documents

import (
	"fmt"
	"strings"
	"time"

	"github.com/mysettle/mysettle/pkg/ledger"
)

// keputusan lays out the investigation decision letter sent to the
// complainant, dated now.
func (p *page) keputusan(doc *Document, now time.Time) {
	d := doc.Details
	generated := now.Format(stampLayout)
	reference := orDefault(d.InvestigationNo, d.ReportNo)

	p.font(false, 10)
	indent := inch(3.5)
	p.row(cell{w: indent}, cell{w: contentWidth - indent, text: "Rujukan Kami: " + reference})
	p.row(cell{w: indent}, cell{w: contentWidth - indent, text: "Tarikh: " + generated})
	p.space(inch(0.4))

	// Recipient, falling back to the complainant
	name := firstOf(d.LetterName, d.ComplainantName, "PENERIMA")
	ic := firstOf(d.LetterIC, d.ComplainantIC, "-")
	address := firstOf(d.LetterAddress, d.ComplainantAddress, "-")
	vehicleNo := orDefault(d.LetterVehicleNo, "Unknown")
	vehicleType := orDefault(d.LetterVehicleType, "KENDERAAN")

	p.paragraph(fmt.Sprintf("%s (NO KP: %s)", name, ic), false, "L")
	for _, line := range strings.Split(address, ",") {
		p.paragraph(strings.TrimSpace(line), false, "L")
	}
	p.paragraph(strings.ToUpper(vehicleType)+" "+vehicleNo, false, "L")
	p.space(inch(0.4))

	p.font(true, 11)
	p.pdf.SetX(marginX)
	title := p.tr("KEPUTUSAN PENYIASATAN KES")
	p.pdf.CellFormat(p.pdf.GetStringWidth(title)+2, p.lineHeight(), title, "B", 1, "L", false, 0, "")
	p.font(false, 10)
	p.space(2)

	detail := func(label, value string) {
		p.row(
			cell{w: inch(2.2), text: label},
			cell{w: inch(0.2), text: ":", align: "C"},
			cell{w: inch(4.0), text: value},
		)
	}
	detail("No. Repot Polis", d.ReportNo)
	detail("Tarikh & Masa Repot Polis", d.ReportedAt.In(ledger.CaseLocation).Format(stampLayout))
	detail("Kesalahan", orDefault(d.OffenceSection, "-"))
	detail("Tempat Kejadian", d.IncidentPlace)
	detail("Tarikh & Masa Kejadian", d.IncidentAt.In(ledger.CaseLocation).Format(stampLayout))
	detail("Tarikh & Masa Surat Dijana", generated)
	p.space(inch(0.2))

	p.paragraph("Dengan hormatnya saya merujuk kepada pengaduan yang dibuat sepertimana dinyatakan di atas", false, "J")
	p.space(inch(0.1))

	p.paragraph(fmt.Sprintf(
		"2. Untuk makluman, pihak yang bertanggungjawab melakukan kesalahan di atas telah disaman oleh polis pada %s dengan no saman: %s sebanyak %s.",
		now.Format(reportDateLayout),
		orDefault(d.SummonsNo, "Unknown"),
		orDefault(d.SummonsAmount, "RM-"),
	), false, "J")
	p.space(inch(0.1))

	p.paragraph("3. Butir-butir pihak yang disalahkan adalah seperti berikut:", false, "L")
	p.space(inch(0.1))

	detail("JENIS KENDERAAN", strings.TrimSpace(d.OffenderVehicleType+" "+d.OffenderVehicleNo))
	detail("NAMA PEMANDU", fmt.Sprintf("%s (NO KP: %s)", orDefault(d.OffenderName, "-"), orDefault(d.OffenderIC, "-")))
	detail("ALAMAT PEMANDU", orDefault(d.OffenderAddress, "-"))
	p.space(inch(0.4))

	p.paragraph(`"BERHATI-HATI DI JALAN RAYA"`, true, "L")
	p.space(inch(0.4))

	p.paragraph(strings.ToUpper(d.OfficerName), false, "L")
	p.paragraph(strings.ToUpper(d.OfficerRank), false, "L")
	p.paragraph("IBU PEJABAT POLIS "+strings.ToUpper(d.District), false, "L")
	p.space(inch(0.4))

	p.paragraph("S.K. NO KST: "+reference, false, "L")
	p.paragraph("(Notis ini hanya sebagai makluman anda sahaja)", false, "L")
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
