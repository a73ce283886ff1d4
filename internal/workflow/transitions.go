package workflow

import (
	"fmt"

	"github.com/mysettle/mysettle/pkg/ledger"
)

// transitions lists the forward moves of the session lifecycle.
var transitions = map[ledger.SessionStatus][]ledger.SessionStatus{
	ledger.StatusCreated:        {ledger.StatusHandshake},
	ledger.StatusHandshake:      {ledger.StatusPendingPolice},
	ledger.StatusPendingPolice:  {ledger.StatusMeetingStarted, ledger.StatusPoliceSigned},
	ledger.StatusMeetingStarted: {ledger.StatusPoliceSigned},
	ledger.StatusPoliceSigned:   {ledger.StatusCompleted},
}

// CanTransition reports whether a session may move from one status to another.
// Staying in the same status is always allowed so repeated requests are no-ops.
func CanTransition(from, to ledger.SessionStatus) bool {
	if from == to {
		return from.Validate() == nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// advance moves s to status to, or returns ErrInvalidTransition.
func advance(s *ledger.Session, to ledger.SessionStatus) error {
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	return nil
}
