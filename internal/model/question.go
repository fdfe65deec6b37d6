package model

import (
	"github.com/google/uuid"
)

// QuestionType distinguishes objective from free-text questions.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeEssay          QuestionType = "ESSAY"
)

// QuestionOption is a single multiple-choice option.
type QuestionOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question represents a single question from the catalog. Immutable during a
// session. ImageURL, AudioURL and MathFormula are opaque presentation strings
// passed through to the client unmodified.
type Question struct {
	ID              uuid.UUID        `json:"id"`
	SubjectID       int              `json:"subject_id"`
	Type            QuestionType     `json:"type"`
	Text            string           `json:"text"`
	ImageURL        string           `json:"image_url,omitempty"`
	AudioURL        string           `json:"audio_url,omitempty"`
	MathFormula     string           `json:"math_formula,omitempty"`
	Options         []QuestionOption `json:"options,omitempty"`
	ReferenceAnswer string           `json:"reference_answer,omitempty"`
	Points          float64          `json:"points"`
	IsValidated     bool             `json:"is_validated"`
	CreatedBy       int              `json:"created_by"`
}

// OptionByID returns the option with the given id, or nil.
func (q *Question) OptionByID(id string) *QuestionOption {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}
