package ledger

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// User is a registered participant: a driver or a police officer.
// The extended profile fields feed the police report form.
type User struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ICNo            string `json:"ic_no"`
	CarPlate        string `json:"car_plate"`
	CarModel        string `json:"car_model"`
	InsurancePolicy string `json:"insurance_policy"`
	IsPolice        bool   `json:"is_police"`

	Address       string `json:"address,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	Job           string `json:"job,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
}

// Session is one accident case shared by two drivers and, later, a police officer.
// Driver A creates it; driver B pairs with it by OTP.
type Session struct {
	ID          string        `json:"id"`            // UUID
	OTP         string        `json:"otp"`           // 6 digit join code
	DriverAID   string        `json:"driver_a_id"`   // Creator
	DriverBID   string        `json:"driver_b_id"`   // Empty until joined
	PoliceID    string        `json:"police_id"`     // Empty until a meeting starts
	Status      SessionStatus `json:"status"`        // Lifecycle state
	MeetLink    string        `json:"meet_link"`     // Video meeting link, set by police
	CreatedAtMs int64         `json:"created_at_ms"` // Unix milliseconds
	UpdatedAtMs int64         `json:"updated_at_ms"` // Unix milliseconds of the last transition
}

// SessionStatus is the lifecycle state of a session.
// CREATED → HANDSHAKE → PENDING_POLICE → MEETING_STARTED → POLICE_SIGNED → COMPLETED
type SessionStatus string

const (
	// StatusCreated means driver A is waiting for a partner to join
	StatusCreated SessionStatus = "CREATED"

	// StatusHandshake means both drivers are paired and drafting their reports
	StatusHandshake SessionStatus = "HANDSHAKE"

	// StatusPendingPolice means both drivers submitted and the case waits for review
	StatusPendingPolice SessionStatus = "PENDING_POLICE"

	// StatusMeetingStarted means a police officer opened the review meeting
	StatusMeetingStarted SessionStatus = "MEETING_STARTED"

	// StatusPoliceSigned means the officer signed and returned the report to the drivers
	StatusPoliceSigned SessionStatus = "POLICE_SIGNED"

	// StatusCompleted means all three parties signed and the case is closed
	StatusCompleted SessionStatus = "COMPLETED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []SessionStatus{
	StatusCreated,
	StatusHandshake,
	StatusPendingPolice,
	StatusMeetingStarted,
	StatusPoliceSigned,
	StatusCompleted,
}

// Report is the single accident report attached to a session.
// It collects the three signatures required to close the case.
type Report struct {
	ID               int64  `json:"id"`
	SessionID        string `json:"session_id"`
	PoliceSignature  string `json:"police_signature,omitempty"`
	DriverASignature string `json:"driver_a_signature,omitempty"`
	DriverBSignature string `json:"driver_b_signature,omitempty"`
	CreatedAtMs      int64  `json:"created_at_ms"`
}

// FullySigned reports whether police and both drivers have signed.
func (r *Report) FullySigned() bool {
	return r.PoliceSignature != "" && r.DriverASignature != "" && r.DriverBSignature != ""
}

// EvidenceType classifies the content of an evidence item.
type EvidenceType string

const (
	EvidenceTypePhoto     EvidenceType = "PHOTO"
	EvidenceTypeVideo     EvidenceType = "VIDEO"
	EvidenceTypeMapSketch EvidenceType = "MAP_SKETCH"
	EvidenceTypeText      EvidenceType = "TEXT"
)

// EvidenceTag is the human label the mobile wizard attaches to a capture.
type EvidenceTag string

const (
	TagCarFront    EvidenceTag = "Car Front"
	TagCarBack     EvidenceTag = "Car Back"
	TagCarLeft     EvidenceTag = "Car Left"
	TagCarRight    EvidenceTag = "Car Right"
	TagDamagePart  EvidenceTag = "Damage Part"
	TagRoughSketch EvidenceTag = "Rough Sketch"
	TagDashcam     EvidenceTag = "Dashcam"
	TagDocument    EvidenceTag = "Document"
	TagOther       EvidenceTag = "Other"
)

// Evidence is one item uploaded by a driver. Content is a base64 payload,
// a data URI or a URL.
type Evidence struct {
	ID          string       `json:"id"`
	ReportID    int64        `json:"report_id"`
	UploaderID  string       `json:"uploader_id"`
	Type        EvidenceType `json:"type"`
	Tag         EvidenceTag  `json:"tag"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	TimestampMs int64        `json:"timestamp_ms"`
}

// Draft is a driver's own account of the accident, filled in the wizard's
// scene details and statement steps.
type Draft struct {
	SessionID     string `json:"session_id"`
	UserID        string `json:"user_id"`
	AccidentTime  string `json:"accident_time,omitempty"` // RFC3339 or "2006-01-02T15:04:05"
	Location      string `json:"location,omitempty"`
	IncidentType  string `json:"incident_type,omitempty"`
	Description   string `json:"description,omitempty"`
	Weather       string `json:"weather,omitempty"`
	RoadSurface   string `json:"road_surface,omitempty"`
	RoadType      string `json:"road_type,omitempty"`
	AtFaultDriver string `json:"at_fault_driver,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Event is a state change pushed to every client listening on a session.
type Event struct {
	Type        string         `json:"event"`
	SessionID   string         `json:"session_id"`
	Data        map[string]any `json:"data"`
	TimestampMs int64          `json:"timestamp_ms"`
}

// Event types published on the session channel.
const (
	EventHandshakeComplete   = "HANDSHAKE_COMPLETE"
	EventReportSubmitted     = "REPORT_SUBMITTED"
	EventAllReportsSubmitted = "ALL_REPORTS_SUBMITTED"
	EventMeetingStarted      = "MEETING_STARTED"
	EventPoliceSigned        = "POLICE_SIGNED"
	EventUserSigned          = "USER_SIGNED"
	EventCaseClosed          = "CASE_CLOSED"
)

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

// Validate checks if the Session has valid field values.
func (s *Session) Validate() error {
	if !isValidUUID(s.ID) {
		return fmt.Errorf("invalid session ID: not a valid UUID")
	}

	if !otpPattern.MatchString(s.OTP) {
		return fmt.Errorf("invalid OTP: must be 6 digits")
	}

	if s.DriverAID == "" {
		return fmt.Errorf("driver_a_id cannot be empty")
	}

	if err := s.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}

	if s.DriverBID != "" && s.DriverBID == s.DriverAID {
		return fmt.Errorf("driver_b_id must differ from driver_a_id")
	}

	return nil
}

// Validate checks if the SessionStatus is a valid enum value.
func (st SessionStatus) Validate() error {
	for _, s := range AllStatuses {
		if st == s {
			return nil
		}
	}
	return fmt.Errorf("unknown session status: %q", st)
}

// Validate checks if the User has the fields every report needs.
func (u *User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if u.Name == "" {
		return fmt.Errorf("user %s: name cannot be empty", u.ID)
	}
	return nil
}

// Validate checks the evidence type and tag enums.
func (e *Evidence) Validate() error {
	switch e.Type {
	case EvidenceTypePhoto, EvidenceTypeVideo, EvidenceTypeMapSketch, EvidenceTypeText:
	default:
		return fmt.Errorf("unknown evidence type: %q", e.Type)
	}

	if err := e.Tag.Validate(); err != nil {
		return err
	}

	if e.UploaderID == "" {
		return fmt.Errorf("uploader_id cannot be empty")
	}

	return nil
}

// Validate checks if the EvidenceTag is a valid enum value.
func (t EvidenceTag) Validate() error {
	switch t {
	case TagCarFront, TagCarBack, TagCarLeft, TagCarRight, TagDamagePart,
		TagRoughSketch, TagDashcam, TagDocument, TagOther:
		return nil
	default:
		return fmt.Errorf("unknown evidence tag: %q", t)
	}
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
