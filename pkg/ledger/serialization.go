package ledger

import (
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Booleans are stored as
// "true"/"false" and timestamps as decimal Unix milliseconds.

// UserToHash converts a User struct to a Redis hash format.
func UserToHash(u *User) map[string]interface{} {
	return map[string]interface{}{
		"id":               u.ID,
		"name":             u.Name,
		"ic_no":            u.ICNo,
		"car_plate":        u.CarPlate,
		"car_model":        u.CarModel,
		"insurance_policy": u.InsurancePolicy,
		"is_police":        strconv.FormatBool(u.IsPolice),
		"address":          u.Address,
		"phone_number":     u.PhoneNumber,
		"job":              u.Job,
		"license_number":   u.LicenseNumber,
	}
}

// HashToUser converts a Redis hash to a User struct.
func HashToUser(hash map[string]string) (*User, error) {
	isPolice := false
	if raw := hash["is_police"]; raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid is_police field: %w", err)
		}
		isPolice = parsed
	}

	return &User{
		ID:              hash["id"],
		Name:            hash["name"],
		ICNo:            hash["ic_no"],
		CarPlate:        hash["car_plate"],
		CarModel:        hash["car_model"],
		InsurancePolicy: hash["insurance_policy"],
		IsPolice:        isPolice,
		Address:         hash["address"],
		PhoneNumber:     hash["phone_number"],
		Job:             hash["job"],
		LicenseNumber:   hash["license_number"],
	}, nil
}

// SessionToHash converts a Session struct to a Redis hash format.
func SessionToHash(s *Session) map[string]interface{} {
	return map[string]interface{}{
		"id":            s.ID,
		"otp":           s.OTP,
		"driver_a_id":   s.DriverAID,
		"driver_b_id":   s.DriverBID,
		"police_id":     s.PoliceID,
		"status":        string(s.Status),
		"meet_link":     s.MeetLink,
		"created_at_ms": s.CreatedAtMs,
		"updated_at_ms": s.UpdatedAtMs,
	}
}

// HashToSession converts a Redis hash to a Session struct.
func HashToSession(hash map[string]string) (*Session, error) {
	createdAtMs, err := parseMillis(hash, "created_at_ms")
	if err != nil {
		return nil, err
	}
	updatedAtMs, err := parseMillis(hash, "updated_at_ms")
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:          hash["id"],
		OTP:         hash["otp"],
		DriverAID:   hash["driver_a_id"],
		DriverBID:   hash["driver_b_id"],
		PoliceID:    hash["police_id"],
		Status:      SessionStatus(hash["status"]),
		MeetLink:    hash["meet_link"],
		CreatedAtMs: createdAtMs,
		UpdatedAtMs: updatedAtMs,
	}, nil
}

// ReportToHash converts a Report struct to a Redis hash format.
func ReportToHash(r *Report) map[string]interface{} {
	return map[string]interface{}{
		"id":                 r.ID,
		"session_id":         r.SessionID,
		"police_signature":   r.PoliceSignature,
		"driver_a_signature": r.DriverASignature,
		"driver_b_signature": r.DriverBSignature,
		"created_at_ms":      r.CreatedAtMs,
	}
}

// HashToReport converts a Redis hash to a Report struct.
func HashToReport(hash map[string]string) (*Report, error) {
	id, err := strconv.ParseInt(hash["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id field: %w", err)
	}
	createdAtMs, err := parseMillis(hash, "created_at_ms")
	if err != nil {
		return nil, err
	}

	return &Report{
		ID:               id,
		SessionID:        hash["session_id"],
		PoliceSignature:  hash["police_signature"],
		DriverASignature: hash["driver_a_signature"],
		DriverBSignature: hash["driver_b_signature"],
		CreatedAtMs:      createdAtMs,
	}, nil
}

// DraftToHash converts a Draft struct to a Redis hash format.
func DraftToHash(d *Draft) map[string]interface{} {
	return map[string]interface{}{
		"session_id":      d.SessionID,
		"user_id":         d.UserID,
		"accident_time":   d.AccidentTime,
		"location":        d.Location,
		"incident_type":   d.IncidentType,
		"description":     d.Description,
		"weather":         d.Weather,
		"road_surface":    d.RoadSurface,
		"road_type":       d.RoadType,
		"at_fault_driver": d.AtFaultDriver,
		"reason":          d.Reason,
	}
}

// HashToDraft converts a Redis hash to a Draft struct.
func HashToDraft(hash map[string]string) *Draft {
	return &Draft{
		SessionID:     hash["session_id"],
		UserID:        hash["user_id"],
		AccidentTime:  hash["accident_time"],
		Location:      hash["location"],
		IncidentType:  hash["incident_type"],
		Description:   hash["description"],
		Weather:       hash["weather"],
		RoadSurface:   hash["road_surface"],
		RoadType:      hash["road_type"],
		AtFaultDriver: hash["at_fault_driver"],
		Reason:        hash["reason"],
	}
}

// parseMillis reads an optional millisecond timestamp field. Missing fields
// decode as zero.
func parseMillis(hash map[string]string, field string) (int64, error) {
	raw := hash[field]
	if raw == "" {
		return 0, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s field: %w", field, err)
	}
	return ms, nil
}
