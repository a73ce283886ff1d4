package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// CaseLocation is the time zone case times are entered and printed in (MYT, UTC+8).
var CaseLocation = time.FixedZone("MYT", 8*60*60)

// PoliceDetails holds every field of the PDRM report set (Polis Repot,
// Rajah Kasar, Keputusan). JSON names follow the Malay form labels used by
// the police portal.
type PoliceDetails struct {
	SessionID string `json:"session_id"`

	// Report header
	ReportNo         string    `json:"report_no"`
	Station          string    `json:"balai_polis"`
	District         string    `json:"daerah"`
	Contingent       string    `json:"kontinjen"`
	Year             string    `json:"tahun"`
	ReportedAt       time.Time `json:"tarikh_repot"`
	RelatedReportNo  string    `json:"no_repot_bersangkut,omitempty"`
	LanguageReceived string    `json:"bahasa_diterima,omitempty"`

	// Officer receiving the report
	ReceiverName string `json:"penerima_nama"`
	ReceiverID   string `json:"penerima_id"`
	ReceiverRank string `json:"penerima_pangkat"`

	// Interpreter, if any
	InterpreterName     string `json:"jurubahasa_nama,omitempty"`
	InterpreterIC       string `json:"jurubahasa_ic,omitempty"`
	InterpreterPoliceID string `json:"jurubahasa_polis_id,omitempty"`
	InterpreterPassport string `json:"jurubahasa_pasport,omitempty"`
	InterpreterLanguage string `json:"jurubahasa_bahasa_asal,omitempty"`
	InterpreterAddress  string `json:"jurubahasa_alamat,omitempty"`

	// Complainant (driver A)
	ComplainantName          string     `json:"pengadu_nama"`
	ComplainantIC            string     `json:"pengadu_ic"`
	ComplainantServiceNo     string     `json:"pengadu_polis_tentera,omitempty"`
	ComplainantPassport      string     `json:"pengadu_pasport,omitempty"`
	ComplainantBirthCert     string     `json:"pengadu_sijil_beranak,omitempty"`
	ComplainantGender        string     `json:"pengadu_jantina,omitempty"`
	ComplainantBirthDate     *time.Time `json:"pengadu_tarikh_lahir,omitempty"`
	ComplainantAge           string     `json:"pengadu_umur,omitempty"`
	ComplainantRace          string     `json:"pengadu_keturunan,omitempty"`
	ComplainantNationality   string     `json:"pengadu_warganegara,omitempty"`
	ComplainantJob           string     `json:"pengadu_pekerjaan"`
	ComplainantAddress       string     `json:"pengadu_alamat"`
	ComplainantParentAddress string     `json:"pengadu_alamat_ibubapa,omitempty"`
	ComplainantOfficeAddress string     `json:"pengadu_alamat_pejabat,omitempty"`
	ComplainantHomePhone     string     `json:"pengadu_tel_rumah,omitempty"`
	ComplainantOfficePhone   string     `json:"pengadu_tel_pejabat,omitempty"`
	ComplainantPhone         string     `json:"pengadu_tel"`
	ComplainantEmail         string     `json:"pengadu_email,omitempty"`

	// Incident
	IncidentAt      time.Time `json:"tarikh_kejadian"`
	IncidentPlace   string    `json:"tempat_kejadian"`
	IncidentType    string    `json:"jenis_kejadian"`
	CaseStatement   string    `json:"keterangan_kes"`
	SketchOfficer   string    `json:"pegawai_penyiasat_sketch"`
	InvestigationNo string    `json:"no_kertas_siasatan,omitempty"`
	PrintedBy       string    `json:"dicetak_oleh,omitempty"`

	// Vehicles and drivers
	VehicleANo     string `json:"kenderaan_a_no"`
	VehicleAType   string `json:"kenderaan_a_jenis"`
	DriverAName    string `json:"pemandu_a_nama"`
	DriverAIC      string `json:"pemandu_a_ic"`
	DriverALicense string `json:"pemandu_a_lesen"`
	VehicleBNo     string `json:"kenderaan_b_no"`
	VehicleBType   string `json:"kenderaan_b_jenis"`
	DriverBName    string `json:"pemandu_b_nama"`
	DriverBIC      string `json:"pemandu_b_ic"`
	DriverBLicense string `json:"pemandu_b_lesen"`

	// Decision
	OffenceSection  string `json:"seksyen_kesalahan"`
	InitialDecision string `json:"keputusan_awal"`
	DecisionNotes   string `json:"catatan_keputusan"`

	// Decision letter recipient
	LetterName        string `json:"penerima_surat_nama,omitempty"`
	LetterIC          string `json:"penerima_surat_ic,omitempty"`
	LetterAddress     string `json:"penerima_surat_alamat,omitempty"`
	LetterVehicleNo   string `json:"penerima_surat_kenderaan_no,omitempty"`
	LetterVehicleType string `json:"penerima_surat_kenderaan_jenis,omitempty"`

	// Party at fault
	OffenderName        string `json:"pihak_salah_nama,omitempty"`
	OffenderIC          string `json:"pihak_salah_ic,omitempty"`
	OffenderAddress     string `json:"pihak_salah_alamat,omitempty"`
	OffenderVehicleType string `json:"pihak_salah_jenis_kenderaan,omitempty"`
	OffenderVehicleNo   string `json:"pihak_salah_no_kenderaan,omitempty"`
	SummonsNo           string `json:"saman_no,omitempty"`
	SummonsAmount       string `json:"saman_amount,omitempty"`

	// Investigating officer
	OfficerName string `json:"pegawai_penyiasat_nama"`
	OfficerRank string `json:"pegawai_penyiasat_pangkat"`
}

// Merge overlays the keys present in patch (a JSON object) onto d.
// Keys absent from patch keep their current value, so a partial form
// submission never blanks fields it did not send.
func (d *PoliceDetails) Merge(patch []byte) error {
	var incoming map[string]json.RawMessage
	if err := json.Unmarshal(patch, &incoming); err != nil {
		return fmt.Errorf("invalid police details patch: %w", err)
	}

	current, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal police details: %w", err)
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(current, &merged); err != nil {
		return fmt.Errorf("failed to unmarshal police details: %w", err)
	}

	for key, value := range incoming {
		merged[key] = value
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal merged police details: %w", err)
	}

	var next PoliceDetails
	if err := json.Unmarshal(out, &next); err != nil {
		return fmt.Errorf("invalid police details: %w", err)
	}

	*d = next
	return nil
}
