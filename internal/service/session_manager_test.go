package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/smkn73/ujian-backend/internal/model"
	"github.com/smkn73/ujian-backend/internal/session"
)

type fakeCatalog struct {
	mu        sync.Mutex
	exam      *model.Exam
	questions []model.Question
}

func (c *fakeCatalog) GetExamByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exam == nil || c.exam.ID != id {
		return nil, nil
	}
	cp := *c.exam
	return &cp, nil
}

func (c *fakeCatalog) GetQuestionsByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Question
	for _, id := range ids {
		for _, q := range c.questions {
			if q.ID == id {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

func (c *fakeCatalog) setStartTime(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exam.StartTime = &t
}

type fakeSubmissions struct {
	mu   sync.Mutex
	subs map[string]*model.StudentSubmission
}

func subKey(examID uuid.UUID, studentID int) string {
	return fmt.Sprintf("%s:%d", examID, studentID)
}

func (f *fakeSubmissions) GetSubmission(_ context.Context, examID uuid.UUID, studentID int) (*model.StudentSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[subKey(examID, studentID)]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeSubmissions) CreateSubmission(_ context.Context, sub *model.StudentSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sub
	f.subs[subKey(sub.ExamID, sub.StudentID)] = &cp
	return nil
}

func (f *fakeSubmissions) UpdateSubmission(_ context.Context, sub *model.StudentSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sub
	f.subs[subKey(sub.ExamID, sub.StudentID)] = &cp
	return nil
}

type fakeAudit struct{}

func (fakeAudit) Record(context.Context, session.AuditEvent) {}

func newManagerFixture(startIn time.Duration) (*SessionManager, *fakeCatalog, uuid.UUID) {
	qID := uuid.New()
	examID := uuid.New()
	start := time.Now().Add(startIn)
	catalog := &fakeCatalog{
		exam: &model.Exam{
			ID:              examID,
			Title:           "Ulangan Harian",
			Status:          model.ExamStatusActive,
			AccessType:      model.AccessOpen,
			DurationMinutes: 30,
			StartTime:       &start,
			Questions:       []model.ExamQuestion{{QuestionID: qID, Points: 10}},
		},
		questions: []model.Question{{
			ID:   qID,
			Type: model.QuestionTypeMultipleChoice,
			Text: "2+2?",
			Options: []model.QuestionOption{
				{ID: "a", Text: "3"},
				{ID: "b", Text: "4", IsCorrect: true},
			},
			Points: 10,
		}},
	}
	subs := &fakeSubmissions{subs: make(map[string]*model.StudentSubmission)}
	mgr := NewSessionManager(catalog, subs, fakeAudit{}, zerolog.Nop())
	return mgr, catalog, examID
}

func TestOpenRetriesGateRefusalWhenWindowOpens(t *testing.T) {
	mgr, catalog, examID := newManagerFixture(30 * time.Second)
	ctx := context.Background()

	ctrl, err := mgr.Open(ctx, examID, 7)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if ctrl.State() != session.StateError {
		t.Fatalf("expected ERROR before the window opens, got %s", ctrl.State())
	}
	snap := ctrl.Snapshot()
	if snap.GateError == nil || snap.GateError.Kind != session.GateNotYetOpen {
		t.Fatalf("expected NOT_YET_OPEN gate error, got %+v", snap.GateError)
	}

	// The window opens; a fresh open must re-run the gates instead of
	// replaying the cached refusal.
	catalog.setStartTime(time.Now().Add(-time.Minute))

	ctrl2, err := mgr.Open(ctx, examID, 7)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	if ctrl2.State() != session.StateInProgress {
		t.Fatalf("expected IN_PROGRESS after the window opened, got %s", ctrl2.State())
	}
	if ctrl2 == ctrl {
		t.Fatal("expected a fresh controller, got the refused one back")
	}
}

func TestOpenKeepsLiveSessionCached(t *testing.T) {
	mgr, _, examID := newManagerFixture(-time.Minute)
	ctx := context.Background()

	ctrl, err := mgr.Open(ctx, examID, 7)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if ctrl.State() != session.StateInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", ctrl.State())
	}

	ctrl2, err := mgr.Open(ctx, examID, 7)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if ctrl2 != ctrl {
		t.Fatal("live session must be returned from the registry, not rebuilt")
	}
}

func TestOpenKeepsFinishedSessionForReplay(t *testing.T) {
	mgr, _, examID := newManagerFixture(-time.Minute)
	ctx := context.Background()

	ctrl, err := mgr.Open(ctx, examID, 7)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := ctrl.ForceTimeout(ctx); err != nil {
		t.Fatalf("force timeout: %v", err)
	}
	if ctrl.State() != session.StateFinished {
		t.Fatalf("expected FINISHED, got %s", ctrl.State())
	}

	ctrl2, err := mgr.Open(ctx, examID, 7)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if ctrl2 != ctrl {
		t.Fatal("finished session must stay cached for read-only replay")
	}
}
