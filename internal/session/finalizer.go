package session

import (
	"context"
	"fmt"
	"time"

	"github.com/smkn73/ujian-backend/internal/model"
)

// Finalize reconciles the answers against the question keys, computes the
// objective score and seals the submission with a single terminal write.
// Idempotent: once EndTime is set the call is a no-op, so the manual-submit,
// clock auto-submit and forced-timeout paths can all route through here.
//
// Essay answers keep an undefined score and IsGraded is never raised on this
// path; that belongs exclusively to the grading workflow.
func Finalize(ctx context.Context, store SubmissionStore, sub *model.StudentSubmission, set *QuestionSet, answers *AnswerStore, now time.Time) error {
	if sub.IsFinal() {
		return nil
	}

	final := answers.Snapshot(set)
	for i := range final {
		q := set.ByID(final[i].QuestionID)
		if q == nil || q.Type != model.QuestionTypeMultipleChoice {
			continue
		}
		opt := q.OptionByID(final[i].Answer)
		correct := opt != nil && opt.IsCorrect
		final[i].IsCorrect = &correct
	}

	score := ObjectiveScore(set, final)

	sub.Answers = final
	sub.EndTime = &now
	sub.SubmittedAt = &now
	sub.TotalScore = &score

	if err := store.UpdateSubmission(ctx, sub); err != nil {
		return fmt.Errorf("persist final submission: %w", err)
	}
	return nil
}

// ObjectiveScore sums the exam point weights of all correctly answered
// multiple-choice questions. Essay points are excluded; they only enter the
// total once a grader scores them.
func ObjectiveScore(set *QuestionSet, answers []model.StudentAnswer) float64 {
	byID := make(map[string]model.StudentAnswer, len(answers))
	for _, a := range answers {
		byID[a.QuestionID.String()] = a
	}
	var total float64
	for _, q := range set.MultipleChoice {
		a, ok := byID[q.ID.String()]
		if ok && a.IsCorrect != nil && *a.IsCorrect {
			total += q.Points
		}
	}
	return total
}
