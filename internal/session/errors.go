package session

import (
	"errors"
	"fmt"
	"time"
)

// GateKind identifies why entry into an exam was refused.
type GateKind string

const (
	// GateNotFound means the initial exam lookup failed. Treated the same
	// as a gate failure: terminal, user-visible, non-retriable.
	GateNotFound GateKind = "NOT_FOUND"
	// GateNotYetOpen means the current time is before the exam window opens.
	GateNotYetOpen GateKind = "NOT_YET_OPEN"
	// GateWindowClosed means the exam window has already passed.
	GateWindowClosed GateKind = "WINDOW_CLOSED"
	// GateNotActive means the exam lifecycle status is not ACTIVE.
	GateNotActive GateKind = "NOT_ACTIVE"
)

// GateError is a terminal gate failure. The student is shown a plain-language
// message and redirected away; nothing about it is retriable in-session.
type GateError struct {
	Kind GateKind
	// OpensAt carries the window start for NOT_YET_OPEN, for display.
	OpensAt *time.Time
}

func (e *GateError) Error() string {
	if e.Kind == GateNotYetOpen && e.OpensAt != nil {
		return fmt.Sprintf("exam gate refused: %s (opens %s)", e.Kind, e.OpensAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("exam gate refused: %s", e.Kind)
}

// ErrNotInProgress is returned by operations that are only legal while the
// session is live (answering, navigation, submission requests).
var ErrNotInProgress = errors.New("session is not in progress")

// ErrInvalidToken is the recoverable token-mismatch notice. The session stays
// in AwaitingToken and resubmission is always allowed, without lockout.
var ErrInvalidToken = errors.New("invalid exam token")
