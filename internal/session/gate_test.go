package session

import (
	"testing"
	"time"

	"github.com/smkn73/ujian-backend/internal/model"
)

func TestEvaluateGates(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name     string
		mutate   func(*model.Exam)
		flags    gateFlags
		outcome  gateOutcome
		failKind GateKind
	}{
		{
			name:    "open exam passes",
			mutate:  func(e *model.Exam) {},
			outcome: gatePass,
		},
		{
			name:     "not yet open",
			mutate:   func(e *model.Exam) { e.StartTime = &after },
			failKind: GateNotYetOpen,
		},
		{
			name:     "window closed",
			mutate:   func(e *model.Exam) { e.EndTime = &before },
			failKind: GateWindowClosed,
		},
		{
			name:     "draft exam not active",
			mutate:   func(e *model.Exam) { e.Status = model.ExamStatusDraft },
			failKind: GateNotActive,
		},
		{
			name: "time window checked before status",
			mutate: func(e *model.Exam) {
				e.Status = model.ExamStatusDraft
				e.StartTime = &after
			},
			failKind: GateNotYetOpen,
		},
		{
			name:    "prerequisites suspend",
			mutate:  func(e *model.Exam) { e.ShowPrerequisites = true },
			outcome: gateAwaitAcknowledgement,
		},
		{
			name:    "prerequisites acknowledged",
			mutate:  func(e *model.Exam) { e.ShowPrerequisites = true },
			flags:   gateFlags{acknowledged: true},
			outcome: gatePass,
		},
		{
			name:    "token suspend",
			mutate:  func(e *model.Exam) { e.AccessType = model.AccessTokenRequired },
			outcome: gateAwaitToken,
		},
		{
			name: "prerequisites before token",
			mutate: func(e *model.Exam) {
				e.ShowPrerequisites = true
				e.AccessType = model.AccessTokenRequired
			},
			outcome: gateAwaitAcknowledgement,
		},
		{
			name:    "all gates resolved",
			mutate:  func(e *model.Exam) { e.AccessType = model.AccessTokenRequired },
			flags:   gateFlags{tokenValidated: true},
			outcome: gatePass,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exam := activeExam()
			tc.mutate(exam)

			outcome, gerr := evaluateGates(exam, tc.flags, now)
			if tc.failKind != "" {
				if gerr == nil {
					t.Fatalf("expected gate failure %s, got pass", tc.failKind)
				}
				if gerr.Kind != tc.failKind {
					t.Fatalf("expected kind %s, got %s", tc.failKind, gerr.Kind)
				}
				return
			}
			if gerr != nil {
				t.Fatalf("unexpected gate failure: %v", gerr)
			}
			if outcome != tc.outcome {
				t.Fatalf("expected outcome %d, got %d", tc.outcome, outcome)
			}
		})
	}
}

func TestEvaluateGatesCarriesOpensAt(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	opens := now.Add(2 * time.Hour)
	exam := activeExam()
	exam.StartTime = &opens

	_, gerr := evaluateGates(exam, gateFlags{}, now)
	if gerr == nil || gerr.OpensAt == nil || !gerr.OpensAt.Equal(opens) {
		t.Fatalf("expected OpensAt %v, got %+v", opens, gerr)
	}
}

func TestMatchTokenIsCaseSensitive(t *testing.T) {
	exam := activeExam()
	exam.ExamToken = "TOKEN123"

	if matchToken(exam, "token123") {
		t.Fatal("lowercase token must not match")
	}
	if !matchToken(exam, "TOKEN123") {
		t.Fatal("exact token must match")
	}
}
