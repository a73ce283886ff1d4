package workflow

import "errors"

// Error classes. Every error returned by Service wraps at most one of them,
// so callers can map failures with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrBadRequest        = errors.New("bad request")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
)

var (
	ErrInvalidOTP      = classified("invalid OTP", ErrNotFound)
	ErrUserNotFound    = classified("user not found", ErrNotFound)
	ErrSessionNotFound = classified("session not found", ErrNotFound)
	ErrReportNotFound  = classified("report not found", ErrNotFound)
	ErrDetailsNotFound = classified("report details not found for this session", ErrNotFound)

	ErrSessionFull       = classified("session full", ErrBadRequest)
	ErrSelfJoin          = classified("cannot join your own session", ErrBadRequest)
	ErrJoinWindowExpired = classified("join window has expired", ErrBadRequest)
	ErrInvalidReportType = classified("invalid report type", ErrBadRequest)

	ErrNotParticipant = classified("user is not a participant", ErrForbidden)
)

// classifiedError carries its own message and unwraps to its class.
type classifiedError struct {
	msg   string
	class error
}

func classified(msg string, class error) error {
	return &classifiedError{msg: msg, class: class}
}

func (e *classifiedError) Error() string { return e.msg }

func (e *classifiedError) Unwrap() error { return e.class }
