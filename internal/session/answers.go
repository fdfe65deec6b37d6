package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/smkn73/ujian-backend/internal/model"
)

// AnswerStore is the in-memory questionId → answer mapping for a live
// session. While the session is open it is the source of truth; the persisted
// copy only catches up on autosave flushes and at finalization.
type AnswerStore struct {
	answers map[uuid.UUID]model.StudentAnswer
}

// newAnswerStore seeds the store by reconciling the built question list with
// previously persisted answers: matched entries are carried over, unmatched
// built questions start empty, and persisted answers for questions no longer
// in the built list are dropped.
func newAnswerStore(set *QuestionSet, persisted []model.StudentAnswer) *AnswerStore {
	s := &AnswerStore{answers: make(map[uuid.UUID]model.StudentAnswer, len(set.Questions))}
	prev := make(map[uuid.UUID]model.StudentAnswer, len(persisted))
	for _, a := range persisted {
		prev[a.QuestionID] = a
	}
	for _, q := range set.Questions {
		if a, ok := prev[q.ID]; ok {
			s.answers[q.ID] = a
		} else {
			s.answers[q.ID] = model.StudentAnswer{QuestionID: q.ID}
		}
	}
	return s
}

// Set stores an answer value. Unknown question ids are ignored.
func (s *AnswerStore) Set(questionID uuid.UUID, value string) {
	a, ok := s.answers[questionID]
	if !ok {
		return
	}
	a.Answer = value
	s.answers[questionID] = a
}

// Value returns the current answer text for a question.
func (s *AnswerStore) Value(questionID uuid.UUID) string {
	return s.answers[questionID].Answer
}

// Snapshot returns the answers in built-question order, with IsCorrect
// recomputed for every answered multiple-choice question against its option's
// correctness flag. Essay scores are never touched here.
func (s *AnswerStore) Snapshot(set *QuestionSet) []model.StudentAnswer {
	out := make([]model.StudentAnswer, 0, len(set.Questions))
	for _, q := range set.Questions {
		a := s.answers[q.ID]
		if q.Type == model.QuestionTypeMultipleChoice && a.Answer != "" {
			opt := q.OptionByID(a.Answer)
			correct := opt != nil && opt.IsCorrect
			a.IsCorrect = &correct
		}
		out = append(out, a)
	}
	return out
}

// Unanswered identifies a question left blank, by its per-tab ordinal.
type Unanswered struct {
	Number int
	Type   model.QuestionType
}

// Label renders the student-facing name, e.g. "Soal 2 (PG)".
func (u Unanswered) Label() string {
	label := "Esai"
	if u.Type == model.QuestionTypeMultipleChoice {
		label = "PG"
	}
	return fmt.Sprintf("Soal %d (%s)", u.Number, label)
}

// UnansweredQuestions lists the questions whose answer is empty after
// trimming, numbered within their own tab (multiple choice and essay count
// separately, like the navigation panel shows them).
func (s *AnswerStore) UnansweredQuestions(set *QuestionSet) []Unanswered {
	var out []Unanswered
	collect := func(questions []model.Question, typ model.QuestionType) {
		for i, q := range questions {
			if strings.TrimSpace(s.answers[q.ID].Answer) == "" {
				out = append(out, Unanswered{Number: i + 1, Type: typ})
			}
		}
	}
	collect(set.MultipleChoice, model.QuestionTypeMultipleChoice)
	collect(set.Essay, model.QuestionTypeEssay)
	return out
}
