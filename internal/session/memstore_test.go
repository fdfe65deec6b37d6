package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/smkn73/ujian-backend/internal/model"
)

// In-memory collaborator fakes used across the package tests.

type memCatalog struct {
	exams     map[uuid.UUID]*model.Exam
	questions map[uuid.UUID]model.Question
	examErr   error
}

func newMemCatalog(exam *model.Exam, questions ...model.Question) *memCatalog {
	c := &memCatalog{
		exams:     map[uuid.UUID]*model.Exam{},
		questions: map[uuid.UUID]model.Question{},
	}
	if exam != nil {
		c.exams[exam.ID] = exam
	}
	for _, q := range questions {
		c.questions[q.ID] = q
	}
	return c
}

func (c *memCatalog) GetExamByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	if c.examErr != nil {
		return nil, c.examErr
	}
	return c.exams[id], nil
}

func (c *memCatalog) GetQuestionsByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	var out []model.Question
	for _, id := range ids {
		if q, ok := c.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

type memSubmissions struct {
	mu      sync.Mutex
	subs     map[string]model.StudentSubmission
	updates  int
	creates  int
	getErr   error
	failNext error
}

func newMemSubmissions() *memSubmissions {
	return &memSubmissions{subs: map[string]model.StudentSubmission{}}
}

func submissionKey(examID uuid.UUID, studentID int) string {
	return fmt.Sprintf("%s:%d", examID, studentID)
}

func copySubmission(s model.StudentSubmission) model.StudentSubmission {
	s.Answers = append([]model.StudentAnswer(nil), s.Answers...)
	s.QuestionOrder = append([]uuid.UUID(nil), s.QuestionOrder...)
	if s.OptionOrder != nil {
		oo := make(map[string][]string, len(s.OptionOrder))
		for k, v := range s.OptionOrder {
			oo[k] = append([]string(nil), v...)
		}
		s.OptionOrder = oo
	}
	return s
}

func (m *memSubmissions) GetSubmission(_ context.Context, examID uuid.UUID, studentID int) (*model.StudentSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.subs[submissionKey(examID, studentID)]
	if !ok {
		return nil, nil
	}
	out := copySubmission(s)
	return &out, nil
}

func (m *memSubmissions) CreateSubmission(_ context.Context, sub *model.StudentSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	m.subs[submissionKey(sub.ExamID, sub.StudentID)] = copySubmission(*sub)
	return nil
}

func (m *memSubmissions) UpdateSubmission(_ context.Context, sub *model.StudentSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.updates++
	m.subs[submissionKey(sub.ExamID, sub.StudentID)] = copySubmission(*sub)
	return nil
}

func (m *memSubmissions) stored(examID uuid.UUID, studentID int) model.StudentSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySubmission(m.subs[submissionKey(examID, studentID)])
}

func (m *memSubmissions) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

type memAudit struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (a *memAudit) Record(_ context.Context, ev AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *memAudit) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

// fakeNow is a manually-advanced clock for deterministic timer tests.
type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

var errStoreDown = errors.New("store unavailable")

// ── shared fixtures ─────────────────────────────────────────────────────

func mcQuestion(text string, points float64, correctID string) model.Question {
	opts := []model.QuestionOption{
		{ID: "a", Text: "Opsi A"},
		{ID: "b", Text: "Opsi B"},
		{ID: "c", Text: "Opsi C"},
	}
	for i := range opts {
		if opts[i].ID == correctID {
			opts[i].IsCorrect = true
		}
	}
	return model.Question{
		ID:      uuid.New(),
		Type:    model.QuestionTypeMultipleChoice,
		Text:    text,
		Options: opts,
		Points:  points,
	}
}

func essayQuestion(text string, points float64) model.Question {
	return model.Question{
		ID:     uuid.New(),
		Type:   model.QuestionTypeEssay,
		Text:   text,
		Points: points,
	}
}

func activeExam(questions ...model.Question) *model.Exam {
	exam := &model.Exam{
		ID:              uuid.New(),
		Title:           "Ulangan Harian",
		DurationMinutes: 30,
		Status:          model.ExamStatusActive,
		AccessType:      model.AccessOpen,
	}
	for _, q := range questions {
		exam.Questions = append(exam.Questions, model.ExamQuestion{QuestionID: q.ID, Points: q.Points})
	}
	return exam
}

func newTestController(exam *model.Exam, questions []model.Question) (*Controller, *memSubmissions, *memAudit, *fakeNow) {
	subs := newMemSubmissions()
	audit := &memAudit{}
	now := &fakeNow{t: time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)}
	ctrl := New(exam.ID, 42, Config{
		Catalog:     newMemCatalog(exam, questions...),
		Submissions: subs,
		Audit:       audit,
		Logger:      zerolog.Nop(),
		Now:         now.Now,
		Rand:        rand.New(rand.NewSource(1)),
	})
	return ctrl, subs, audit, now
}
