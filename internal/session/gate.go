package session

import (
	"time"

	"github.com/smkn73/ujian-backend/internal/model"
)

// gateFlags is the session-local record of resolved suspensions. The flags
// live only in the controller, never in the store.
type gateFlags struct {
	acknowledged   bool
	tokenValidated bool
}

// gateOutcome is the result of one gate evaluation pass.
type gateOutcome int

const (
	gatePass gateOutcome = iota
	gateAwaitAcknowledgement
	gateAwaitToken
)

// evaluateGates decides whether the student may proceed into the timed
// portion of the session. Deterministic and side-effect-free: terminal
// failures come back as a GateError, suspensions as an outcome the caller
// maps to a waiting state.
func evaluateGates(exam *model.Exam, flags gateFlags, now time.Time) (gateOutcome, *GateError) {
	if exam.StartTime != nil && now.Before(*exam.StartTime) {
		return 0, &GateError{Kind: GateNotYetOpen, OpensAt: exam.StartTime}
	}
	if exam.EndTime != nil && now.After(*exam.EndTime) {
		return 0, &GateError{Kind: GateWindowClosed}
	}
	if exam.Status != model.ExamStatusActive {
		return 0, &GateError{Kind: GateNotActive}
	}
	if exam.ShowPrerequisites && !flags.acknowledged {
		return gateAwaitAcknowledgement, nil
	}
	if exam.AccessType == model.AccessTokenRequired && !flags.tokenValidated {
		return gateAwaitToken, nil
	}
	return gatePass, nil
}

// matchToken compares a submitted token against the exam token,
// case-sensitively. No lockout count; resubmission is always allowed.
func matchToken(exam *model.Exam, token string) bool {
	return token == exam.ExamToken
}
