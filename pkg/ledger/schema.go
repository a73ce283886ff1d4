package ledger

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced so several deployments
// (staging, demo, production) can share one Redis server.
//
// Key pattern: mysettle:{namespace}:{entity}:{id}
// Channel pattern: mysettle:{namespace}:session:{session_id}:events

// UserKey returns the Redis key for a user hash.
// Pattern: mysettle:{namespace}:user:{user_id}
func UserKey(namespace, userID string) string {
	return fmt.Sprintf("mysettle:%s:user:%s", namespace, userID)
}

// SessionKey returns the Redis key for a session hash.
// Pattern: mysettle:{namespace}:session:{session_id}
func SessionKey(namespace, sessionID string) string {
	return fmt.Sprintf("mysettle:%s:session:%s", namespace, sessionID)
}

// OTPKey returns the Redis key mapping a join code to its session ID.
// Pattern: mysettle:{namespace}:otp:{otp}
func OTPKey(namespace, otp string) string {
	return fmt.Sprintf("mysettle:%s:otp:%s", namespace, otp)
}

// SessionsKey returns the Redis key for the ZSET of all session IDs scored by creation time.
// Pattern: mysettle:{namespace}:sessions
func SessionsKey(namespace string) string {
	return fmt.Sprintf("mysettle:%s:sessions", namespace)
}

// StatusIndexKey returns the Redis key for the SET of session IDs currently in status.
// Pattern: mysettle:{namespace}:sessions:{status}
func StatusIndexKey(namespace string, status SessionStatus) string {
	return fmt.Sprintf("mysettle:%s:sessions:%s", namespace, status)
}

// ReportKey returns the Redis key for a session's report hash.
// Pattern: mysettle:{namespace}:report:{session_id}
func ReportKey(namespace, sessionID string) string {
	return fmt.Sprintf("mysettle:%s:report:%s", namespace, sessionID)
}

// ReportSeqKey returns the Redis key of the report ID counter.
// Pattern: mysettle:{namespace}:report_seq
func ReportSeqKey(namespace string) string {
	return fmt.Sprintf("mysettle:%s:report_seq", namespace)
}

// EvidenceKey returns the Redis key for a report's evidence LIST.
// Pattern: mysettle:{namespace}:report:{session_id}:evidence
func EvidenceKey(namespace, sessionID string) string {
	return fmt.Sprintf("mysettle:%s:report:%s:evidence", namespace, sessionID)
}

// UploadersKey returns the Redis key for the SET of users who submitted evidence.
// Pattern: mysettle:{namespace}:report:{session_id}:uploaders
func UploadersKey(namespace, sessionID string) string {
	return fmt.Sprintf("mysettle:%s:report:%s:uploaders", namespace, sessionID)
}

// DraftKey returns the Redis key for one driver's draft hash.
// Pattern: mysettle:{namespace}:draft:{session_id}:{user_id}
func DraftKey(namespace, sessionID, userID string) string {
	return fmt.Sprintf("mysettle:%s:draft:%s:%s", namespace, sessionID, userID)
}

// PoliceDetailsKey returns the Redis key for the JSON-encoded police report form.
// Pattern: mysettle:{namespace}:police_details:{session_id}
func PoliceDetailsKey(namespace, sessionID string) string {
	return fmt.Sprintf("mysettle:%s:police_details:%s", namespace, sessionID)
}

// SessionEventsChannel returns the Pub/Sub channel carrying a session's events.
// Pattern: mysettle:{namespace}:session:{session_id}:events
func SessionEventsChannel(namespace, sessionID string) string {
	return fmt.Sprintf("mysettle:%s:session:%s:events", namespace, sessionID)
}
