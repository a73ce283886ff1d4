// Package aggregate merges the two drivers' drafts and profiles into the
// preliminary police report form.
package aggregate

import (
	"strconv"
	"strings"
	"time"

	"github.com/mysettle/mysettle/pkg/ledger"
)

// Placeholder values written where neither driver supplied information.
const (
	DefaultLocation     = "Lokasi Tidak Dinyatakan"
	DefaultIncidentType = "Kemalangan Jalan Raya"
	DefaultStory        = "Tiada keterangan kejadian."
	DefaultAddress      = "Alamat Tidak Dinyatakan"
	DefaultLicense      = "D"
	Unassigned          = "TBD"
	NotApplicable       = "-"
)

// accidentTimeLayouts are the formats the mobile wizard sends.
var accidentTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ICDetails is what a Malaysian IC number reveals about its holder.
type ICDetails struct {
	BirthDate time.Time
	Age       int
	Gender    string // "Lelaki" or "Perempuan"
}

// ParseIC decodes a Malaysian IC number (YYMMDD-PB-####, hyphens optional).
// A two digit year above now's two digit year is read as 19YY, otherwise 20YY.
// The last digit is odd for men and even for women.
// Returns ok=false when the number is malformed or the date does not exist.
func ParseIC(ic string, now time.Time) (ICDetails, bool) {
	clean := strings.TrimSpace(strings.ReplaceAll(ic, "-", ""))
	if len(clean) != 12 {
		return ICDetails{}, false
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return ICDetails{}, false
		}
	}

	yy, _ := strconv.Atoi(clean[0:2])
	mm, _ := strconv.Atoi(clean[2:4])
	dd, _ := strconv.Atoi(clean[4:6])

	century := 2000
	if yy > now.Year()%100 {
		century = 1900
	}

	birth := time.Date(century+yy, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	// time.Date normalises out-of-range values; reject them instead
	if birth.Year() != century+yy || birth.Month() != time.Month(mm) || birth.Day() != dd {
		return ICDetails{}, false
	}

	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}

	gender := "Perempuan"
	if (clean[11]-'0')%2 == 1 {
		gender = "Lelaki"
	}

	return ICDetails{BirthDate: birth, Age: age, Gender: gender}, true
}

// PoliceDetailsFromDrafts builds the preliminary police report form.
// Driver A is the complainant and draft A the primary source; draft B only
// fills fields draft A left empty. Either draft may be nil.
func PoliceDetailsFromDrafts(sessionID string, draftA, draftB *ledger.Draft, userA, userB *ledger.User, now time.Time) *ledger.PoliceDetails {
	if draftA == nil {
		draftA = &ledger.Draft{}
	}
	if draftB == nil {
		draftB = &ledger.Draft{}
	}
	if userA == nil {
		userA = &ledger.User{}
	}
	if userB == nil {
		userB = &ledger.User{}
	}

	pick := func(field func(*ledger.Draft) string, fallback string) string {
		return firstNonEmpty(field(draftA), field(draftB), fallback)
	}

	incidentAt, ok := parseAccidentTime(draftA.AccidentTime)
	if !ok {
		incidentAt, ok = parseAccidentTime(draftB.AccidentTime)
	}
	if !ok {
		incidentAt = now
	}

	year := strconv.Itoa(now.Year())
	shortID := sessionID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	details := &ledger.PoliceDetails{
		SessionID: sessionID,

		ReportNo:   "DRAFT/" + strings.ToUpper(shortID) + "/" + year,
		Station:    "TBD (Auto-assigned)",
		District:   Unassigned,
		Contingent: Unassigned,
		Year:       year,
		ReportedAt: now,

		ReceiverName: "SISTEM MYSETTLE",
		ReceiverID:   "SYS-AUTO",
		ReceiverRank: NotApplicable,

		ComplainantName:        userA.Name,
		ComplainantIC:          userA.ICNo,
		ComplainantAddress:     firstNonEmpty(userA.Address, DefaultAddress),
		ComplainantPhone:       firstNonEmpty(userA.PhoneNumber, NotApplicable),
		ComplainantJob:         firstNonEmpty(userA.Job, NotApplicable),
		ComplainantNationality: "Malaysia",
		ComplainantAge:         NotApplicable,
		ComplainantGender:      NotApplicable,
		ComplainantRace:        NotApplicable,

		IncidentAt:    incidentAt,
		IncidentPlace: pick(func(d *ledger.Draft) string { return d.Location }, DefaultLocation),
		IncidentType:  pick(func(d *ledger.Draft) string { return d.IncidentType }, DefaultIncidentType),
		CaseStatement: caseStatement(draftA, draftB),
		SketchOfficer: Unassigned,

		VehicleANo:     userA.CarPlate,
		VehicleAType:   userA.CarModel,
		DriverAName:    userA.Name,
		DriverAIC:      userA.ICNo,
		DriverALicense: firstNonEmpty(userA.LicenseNumber, DefaultLicense),

		VehicleBNo:     userB.CarPlate,
		VehicleBType:   userB.CarModel,
		DriverBName:    userB.Name,
		DriverBIC:      userB.ICNo,
		DriverBLicense: firstNonEmpty(userB.LicenseNumber, DefaultLicense),

		OffenceSection:  "Siasatan Dijalankan",
		InitialDecision: "Belum Diputuskan",
		DecisionNotes:   NotApplicable,

		OfficerName: Unassigned,
		OfficerRank: NotApplicable,
	}

	if ic, ok := ParseIC(userA.ICNo, now); ok {
		birth := ic.BirthDate
		details.ComplainantBirthDate = &birth
		details.ComplainantAge = strconv.Itoa(ic.Age)
		details.ComplainantGender = ic.Gender
	}

	return details
}

// caseStatement is the story followed by the road context, e.g.
// "Kereta B langgar belakang. \n(Cuaca: Hujan, Jalan: Basah)".
func caseStatement(draftA, draftB *ledger.Draft) string {
	parts := []string{firstNonEmpty(draftA.Description, draftB.Description, DefaultStory)}

	var context []string
	if weather := firstNonEmpty(draftA.Weather, draftB.Weather); weather != "" {
		context = append(context, "Cuaca: "+weather)
	}
	if surface := firstNonEmpty(draftA.RoadSurface, draftB.RoadSurface); surface != "" {
		context = append(context, "Jalan: "+surface)
	}
	if roadType := firstNonEmpty(draftA.RoadType, draftB.RoadType); roadType != "" {
		context = append(context, "Jenis Jalan: "+roadType)
	}
	if len(context) > 0 {
		parts = append(parts, "\n("+strings.Join(context, ", ")+")")
	}

	return strings.Join(parts, " ")
}

func parseAccidentTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range accidentTimeLayouts {
		// Layouts without an offset are Malaysian local time
		if t, err := time.ParseInLocation(layout, raw, ledger.CaseLocation); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
