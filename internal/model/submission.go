package model

import (
	"time"

	"github.com/google/uuid"
)

// StudentAnswer holds one answer inside a submission. For multiple choice,
// Answer is the selected option id and IsCorrect is computed at answer time
// or at finalization. For essays, Answer is free text and Score is filled in
// later by a human grader.
type StudentAnswer struct {
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer,omitempty"`
	IsCorrect  *bool     `json:"is_correct,omitempty"`
	Score      *float64  `json:"score,omitempty"`
}

// StudentSubmission is one student's single attempt at one exam. Created
// lazily on first entry into the live session; at most one non-nil EndTime —
// once set, the submission is sealed except for essay scores applied by the
// grading workflow.
//
// QuestionOrder and OptionOrder persist the shuffled presentation order so a
// reload reproduces the same built question list instead of reshuffling.
type StudentSubmission struct {
	ID            uuid.UUID           `json:"id"`
	ExamID        uuid.UUID           `json:"exam_id"`
	StudentID     int                 `json:"student_id"`
	Answers       []StudentAnswer     `json:"answers"`
	QuestionOrder []uuid.UUID         `json:"question_order,omitempty"`
	OptionOrder   map[string][]string `json:"option_order,omitempty"`
	StartTime     time.Time           `json:"start_time"`
	EndTime       *time.Time          `json:"end_time,omitempty"`
	SubmittedAt   *time.Time          `json:"submitted_at,omitempty"`
	TotalScore    *float64            `json:"total_score,omitempty"`
	IsGraded      bool                `json:"is_graded"`
}

// IsFinal reports whether the submission has been sealed.
func (s *StudentSubmission) IsFinal() bool {
	return s != nil && s.EndTime != nil
}

// AnswerFor returns the stored answer for a question, or nil.
func (s *StudentSubmission) AnswerFor(questionID uuid.UUID) *StudentAnswer {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			return &s.Answers[i]
		}
	}
	return nil
}
