package documents

import (
	"strings"

	"github.com/mysettle/mysettle/pkg/ledger"
)

const (
	reportDateLayout = "02/01/06"
	reportTimeLayout = "03:04 PM"
	stampLayout      = "02/01/06 03:04 PM"
	birthDateLayout  = "02/01/2006"
	blankLine        = "_________________________"
	none             = "---"
)

// Column widths of the three-pair particulars grid, 6.5 inch in total.
var (
	gridLabel1 = inch(0.95)
	gridValue1 = inch(1.3)
	gridLabel2 = inch(0.95)
	gridValue2 = inch(1.15)
	gridLabel3 = inch(0.9)
	gridValue3 = inch(0.95)
	gridSpan   = contentWidth - gridLabel1 - inch(0.1)
)

// polisRepot lays out the PDRM police report form.
func (p *page) polisRepot(doc *Document) {
	d := doc.Details
	reported := d.ReportedAt.In(ledger.CaseLocation)

	p.title("POLIS DIRAJA MALAYSIA", 12)
	p.title("REPOT POLIS", 12)
	p.space(3)

	// Meta block, two label/value columns
	p.font(false, 9)
	metaLeft := func(label, value string) []cell {
		return []cell{
			{w: inch(1.2), text: label},
			{w: inch(0.2), text: ":"},
			{w: inch(2.3), text: value},
		}
	}
	metaRight := func(label, value string) []cell {
		return []cell{
			{w: inch(1.3), text: label},
			{w: inch(0.1), text: ":"},
			{w: inch(1.4), text: value},
		}
	}
	p.row(cells(metaLeft("Balai", d.Station), metaRight("Pegawai Penyiasat", d.SketchOfficer))...)
	p.row(cells(metaLeft("Daerah", d.District), metaRight("No. Repot Bersangkut", orDefault(d.RelatedReportNo, "-")))...)
	p.row(metaLeft("Kontinjen", d.Contingent)...)
	p.row(metaLeft("No. Repot", d.ReportNo)...)
	p.row(metaLeft("Tarikh", reported.Format(reportDateLayout))...)
	p.row(metaLeft("Waktu", reported.Format(reportTimeLayout))...)
	p.row(metaLeft("Bahasa Diterima", orDefault(d.LanguageReceived, "-"))...)
	p.space(5)

	p.section("Butir-butir Penerima Repot :")
	p.row(cells(
		field("Nama", gridLabel1, d.ReceiverName, gridValue1),
		field("No. Badan", gridLabel2, d.ReceiverID, gridValue2),
		field("Pangkat", gridLabel3, d.ReceiverRank, gridValue3),
	)...)
	p.space(4)

	p.section("Butir-butir Jurubahasa (Jika Ada) :")
	p.row(cells(
		field("Nama", gridLabel1, orDefault(d.InterpreterName, none), gridValue1),
		field("No. K/P (Baru)", gridLabel2, orDefault(d.InterpreterIC, none), gridValue2),
		field("No. Polis", gridLabel3, orDefault(d.InterpreterPoliceID, none), gridValue3),
	)...)
	p.row(cells(
		field("No. Pasport", gridLabel1, orDefault(d.InterpreterPassport, none), gridValue1),
		field("Bahasa Asal", gridLabel2, orDefault(d.InterpreterLanguage, none), gridValue2),
	)...)
	p.row(field("Alamat", gridLabel1, orDefault(d.InterpreterAddress, none), gridSpan)...)
	p.space(4)

	birthDate := none
	if d.ComplainantBirthDate != nil {
		birthDate = d.ComplainantBirthDate.Format(birthDateLayout)
	}

	p.section("Butir-butir Pengadu :")
	p.row(field("Nama", gridLabel1, d.ComplainantName, gridSpan)...)
	p.row(cells(
		field("No. K/P (Baru)", gridLabel1, d.ComplainantIC, gridValue1),
		field("No. Polis", gridLabel2, orDefault(d.ComplainantServiceNo, none), gridValue2),
		field("No. Pasport", gridLabel3, orDefault(d.ComplainantPassport, none), gridValue3),
	)...)
	p.row(cells(
		field("No. Sijil Beranak", gridLabel1, orDefault(d.ComplainantBirthCert, none), gridValue1),
		field("Jantina", gridLabel2, orDefault(d.ComplainantGender, none), gridValue2),
		field("Tarikh Lahir", gridLabel3, birthDate, gridValue3),
	)...)
	p.row(cells(
		field("Umur", gridLabel1, orDefault(d.ComplainantAge, none), gridValue1),
		field("Keturunan", gridLabel2, orDefault(d.ComplainantRace, none), gridValue2),
		field("Warganegara", gridLabel3, orDefault(d.ComplainantNationality, "Malaysia"), gridValue3),
	)...)
	p.row(field("Pekerjaan", gridLabel1, d.ComplainantJob, gridSpan)...)
	p.row(field("Alamat Tinggal", gridLabel1, d.ComplainantAddress, gridSpan)...)
	p.row(field("Alamat IbuBapa", gridLabel1, orDefault(d.ComplainantParentAddress, none), gridSpan)...)
	p.row(field("Alamat Pejabat", gridLabel1, orDefault(d.ComplainantOfficeAddress, none), gridSpan)...)
	p.row(cells(
		field("No. Tel (Rumah)", gridLabel1, orDefault(d.ComplainantHomePhone, none), gridValue1),
		field("No. Tel (Pejabat)", gridLabel2, orDefault(d.ComplainantOfficePhone, none), gridValue2),
		field("No. Tel (Bimbit)", gridLabel3, d.ComplainantPhone, gridValue3),
	)...)
	p.row(field("Emel", gridLabel1, orDefault(d.ComplainantEmail, none), gridSpan)...)
	p.space(3)

	p.section("Pengadu Menyatakan :")
	p.space(1)
	p.paragraph(strings.ToUpper(d.CaseStatement), false, "J")
	p.space(inch(1))

	// Signatures
	third := contentWidth / 3
	p.row(
		cell{w: third, text: "Tandatangan Pengadu:"},
		cell{w: third, text: "Tandatangan Jurubahasa\n(Jika ada):"},
		cell{w: third, text: "Tandatangan Penerima Repot:"},
	)
	p.space(inch(0.4))
	p.row(
		cell{w: third, text: signatureLine(doc.ComplainantSignedBy)},
		cell{w: third, text: blankLine},
		cell{w: third, text: signatureLine(doc.ReceiverSignedBy)},
	)
}

// section prints a small bold heading.
func (p *page) section(text string) {
	p.font(true, 9)
	p.pdf.SetX(marginX)
	p.pdf.CellFormat(contentWidth, p.lineHeight(), p.tr(text), "", 1, "L", false, 0, "")
	p.font(false, 9)
}

func signatureLine(signedBy string) string {
	if signedBy == "" {
		return blankLine
	}
	return strings.ToUpper(signedBy) + "\n(digital signature)"
}
