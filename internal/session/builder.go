package session

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/smkn73/ujian-backend/internal/model"
)

// QuestionSet is the session-local, order-fixed question list presented to
// the student. Questions carry the exam's per-question point override, and
// the set is partitioned by type for independent tab navigation.
type QuestionSet struct {
	Questions      []model.Question
	MultipleChoice []model.Question
	Essay          []model.Question
}

// BuildQuestionSet produces the built question list for a fresh session.
// Dangling question references (absent from the catalog) are dropped rather
// than failing the whole session. When the exam requests randomization, the
// question list and each multiple-choice option list get independent uniform
// shuffles. This runs exactly once per session; the resulting order must be
// persisted (see Order/OptionOrder) so reloads never reshuffle.
func BuildQuestionSet(exam *model.Exam, catalog []model.Question, rng *rand.Rand) *QuestionSet {
	byID := make(map[uuid.UUID]model.Question, len(catalog))
	for _, q := range catalog {
		byID[q.ID] = q
	}

	questions := make([]model.Question, 0, len(exam.Questions))
	for _, eq := range exam.Questions {
		q, ok := byID[eq.QuestionID]
		if !ok {
			continue
		}
		q.Points = eq.Points
		questions = append(questions, q)
	}

	if exam.RandomizeQuestions {
		rng.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}

	if exam.RandomizeAnswers {
		for i := range questions {
			if questions[i].Type != model.QuestionTypeMultipleChoice {
				continue
			}
			opts := append([]model.QuestionOption(nil), questions[i].Options...)
			rng.Shuffle(len(opts), func(a, b int) {
				opts[a], opts[b] = opts[b], opts[a]
			})
			questions[i].Options = opts
		}
	}

	return newQuestionSet(questions)
}

// RebuildQuestionSet reconstructs the exact question set of an earlier build
// from the permutation persisted on the submission. Ids missing from the exam
// or catalog are skipped; questions the order does not mention are dropped,
// so a reload shows precisely what the original build showed.
func RebuildQuestionSet(exam *model.Exam, catalog []model.Question, order []uuid.UUID, optionOrder map[string][]string) *QuestionSet {
	points := make(map[uuid.UUID]float64, len(exam.Questions))
	for _, eq := range exam.Questions {
		points[eq.QuestionID] = eq.Points
	}
	byID := make(map[uuid.UUID]model.Question, len(catalog))
	for _, q := range catalog {
		byID[q.ID] = q
	}

	questions := make([]model.Question, 0, len(order))
	for _, id := range order {
		q, ok := byID[id]
		if !ok {
			continue
		}
		if p, ok := points[id]; ok {
			q.Points = p
		}
		if stored, ok := optionOrder[id.String()]; ok {
			q.Options = reorderOptions(q.Options, stored)
		}
		questions = append(questions, q)
	}

	return newQuestionSet(questions)
}

func newQuestionSet(questions []model.Question) *QuestionSet {
	set := &QuestionSet{Questions: questions}
	for _, q := range questions {
		switch q.Type {
		case model.QuestionTypeMultipleChoice:
			set.MultipleChoice = append(set.MultipleChoice, q)
		case model.QuestionTypeEssay:
			set.Essay = append(set.Essay, q)
		}
	}
	return set
}

// reorderOptions applies a persisted option-id permutation. Unknown stored
// ids are skipped and options the permutation misses keep their original
// relative order at the tail.
func reorderOptions(opts []model.QuestionOption, stored []string) []model.QuestionOption {
	byID := make(map[string]model.QuestionOption, len(opts))
	for _, o := range opts {
		byID[o.ID] = o
	}
	out := make([]model.QuestionOption, 0, len(opts))
	seen := make(map[string]bool, len(stored))
	for _, id := range stored {
		if o, ok := byID[id]; ok {
			out = append(out, o)
			seen[id] = true
		}
	}
	for _, o := range opts {
		if !seen[o.ID] {
			out = append(out, o)
		}
	}
	return out
}

// Order returns the presented question ids, in order, for persistence.
func (s *QuestionSet) Order() []uuid.UUID {
	order := make([]uuid.UUID, len(s.Questions))
	for i, q := range s.Questions {
		order[i] = q.ID
	}
	return order
}

// OptionOrder returns the presented option-id order per multiple-choice
// question, keyed by question id, for persistence.
func (s *QuestionSet) OptionOrder() map[string][]string {
	out := make(map[string][]string, len(s.MultipleChoice))
	for _, q := range s.MultipleChoice {
		ids := make([]string, len(q.Options))
		for i, o := range q.Options {
			ids[i] = o.ID
		}
		out[q.ID.String()] = ids
	}
	return out
}

// ByID returns the built question with the given id, or nil.
func (s *QuestionSet) ByID(id uuid.UUID) *model.Question {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}

// HasBothTypes reports whether the UI should expose two tabs.
func (s *QuestionSet) HasBothTypes() bool {
	return len(s.MultipleChoice) > 0 && len(s.Essay) > 0
}
