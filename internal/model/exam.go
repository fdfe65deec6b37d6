package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the lifecycle states of an exam.
type ExamStatus string

const (
	ExamStatusDraft             ExamStatus = "DRAFT"
	ExamStatusPendingValidation ExamStatus = "PENDING_VALIDATION"
	ExamStatusActive            ExamStatus = "ACTIVE"
	ExamStatusCompleted         ExamStatus = "COMPLETED"
	ExamStatusArchived          ExamStatus = "ARCHIVED"
)

// ExamAccessType controls how a student enters an exam.
type ExamAccessType string

const (
	AccessOpen          ExamAccessType = "OPEN"
	AccessTokenRequired ExamAccessType = "TOKEN_REQUIRED"
)

// ExamQuestion is an ordered question reference with the point value as used
// in this exam, which may override the question's own base points. This is
// the authoritative scoring weight during a session.
type ExamQuestion struct {
	QuestionID uuid.UUID `json:"question_id"`
	Points     float64   `json:"points"`
}

// Exam represents an exam entity. Immutable for the duration of a session.
type Exam struct {
	ID                 uuid.UUID      `json:"id"`
	Title              string         `json:"title"`
	SubjectID          int            `json:"subject_id"`
	ClassIDs           []int          `json:"class_ids"`
	SubClassIDs        []int          `json:"sub_class_ids"`
	CreatorID          int            `json:"creator_id"`
	Questions          []ExamQuestion `json:"questions"`
	DurationMinutes    int            `json:"duration_minutes"`
	KKM                float64        `json:"kkm"`
	RandomizeQuestions bool           `json:"randomize_questions"`
	RandomizeAnswers   bool           `json:"randomize_answers"`
	Status             ExamStatus     `json:"status"`
	StartTime          *time.Time     `json:"start_time,omitempty"`
	EndTime            *time.Time     `json:"end_time,omitempty"`
	ShowPrerequisites  bool           `json:"show_prerequisites"`
	PrerequisitesText  string         `json:"prerequisites_text,omitempty"`
	AccessType         ExamAccessType `json:"access_type"`
	ExamToken          string         `json:"-"`
	AcademicYear       string         `json:"academic_year"`
	CreatedAt          time.Time      `json:"created_at"`
}

// SubmitTokenRequest is the payload for validating an exam entry token.
type SubmitTokenRequest struct {
	Token string `json:"token" binding:"required,min=1,max=32"`
}

// SetAnswerRequest is the payload for storing a single answer.
type SetAnswerRequest struct {
	Answer string `json:"answer"`
}

// SetPositionRequest is the payload for question navigation.
type SetPositionRequest struct {
	Tab   string `json:"tab" binding:"required,oneof=mcq essay"`
	Index int    `json:"index" binding:"min=0"`
}
