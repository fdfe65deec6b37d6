// Package session implements the exam session engine: the state machine that
// governs a student's live attempt at a timed exam, from gating checks through
// answer capture, autosave, countdown-driven auto-submission, integrity
// signals and final score reconciliation.
//
// The engine is host-agnostic: all I/O goes through the collaborator
// contracts below, so it runs against the Postgres/Redis stores in production
// and against in-memory fakes in tests.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smkn73/ujian-backend/internal/model"
)

// Catalog is the read-only exam and question lookup.
type Catalog interface {
	// GetExamByID returns the exam or (nil, nil) when it does not exist.
	GetExamByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	// GetQuestionsByIDs may return a subset if entries are missing.
	GetQuestionsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// SubmissionStore persists student submissions. UpdateSubmission is
// last-write-wins and is called both by autosave (partial) and by the
// finalizer (terminal); callers must not assume atomicity across fields.
type SubmissionStore interface {
	// GetSubmission returns (nil, nil) when no submission exists yet.
	GetSubmission(ctx context.Context, examID uuid.UUID, studentID int) (*model.StudentSubmission, error)
	CreateSubmission(ctx context.Context, sub *model.StudentSubmission) error
	UpdateSubmission(ctx context.Context, sub *model.StudentSubmission) error
}

// AuditEvent is an integrity signal raised during a live session.
type AuditEvent struct {
	Kind      string    `json:"kind"`
	ExamID    uuid.UUID `json:"exam_id"`
	StudentID int       `json:"student_id"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail"`
}

// AuditKindLeftExamTab is raised the first time the student hides the exam
// tab while the session is in progress.
const AuditKindLeftExamTab = "STUDENT_LEFT_EXAM_TAB"

// AuditSink records audit signals. Implementations are fire-and-forget:
// failures must never block or abort the session.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent)
}
