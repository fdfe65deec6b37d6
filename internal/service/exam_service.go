package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/smkn73/ujian-backend/internal/model"
	"github.com/smkn73/ujian-backend/internal/repository"
	"github.com/smkn73/ujian-backend/internal/store"
)

// ExamService handles the student-facing exam listing and cache prewarming.
type ExamService struct {
	examRepo *repository.ExamRepository
	subRepo  *repository.SubmissionRepository
	catalog  *store.Catalog
	log      zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	subRepo *repository.SubmissionRepository,
	catalog *store.Catalog,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo: examRepo,
		subRepo:  subRepo,
		catalog:  catalog,
		log:      log.With().Str("component", "exam_service").Logger(),
	}
}

// LobbyStatus represents the concrete state of an exam in the lobby.
type LobbyStatus string

const (
	LobbyStatusUpcoming   LobbyStatus = "UPCOMING"
	LobbyStatusAvailable  LobbyStatus = "AVAILABLE"
	LobbyStatusInProgress LobbyStatus = "IN_PROGRESS"
	LobbyStatusCompleted  LobbyStatus = "COMPLETED"
)

// LobbyExam represents an exam as displayed in the student lobby.
type LobbyExam struct {
	ID              uuid.UUID   `json:"id"`
	Title           string      `json:"title"`
	SubjectID       int         `json:"subject_id"`
	DurationMinutes int         `json:"duration_minutes"`
	QuestionCount   int         `json:"question_count"`
	StartTime       *time.Time  `json:"start_time,omitempty"`
	EndTime         *time.Time  `json:"end_time,omitempty"`
	RequiresToken   bool        `json:"requires_token"`
	LobbyStatus     LobbyStatus `json:"lobby_status"`
	TotalScore      *float64    `json:"total_score,omitempty"`
	SubmittedAt     *time.Time  `json:"submitted_at,omitempty"`
}

// GetLobby returns the exams targeted at the student's class, with the
// student's own submission state overlaid.
func (s *ExamService) GetLobby(ctx context.Context, studentID, classID, subClassID int) ([]LobbyExam, error) {
	exams, err := s.examRepo.ListActiveForClass(ctx, classID, subClassID)
	if err != nil {
		return nil, fmt.Errorf("list exams for class: %w", err)
	}

	subs, err := s.subRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	subMap := make(map[uuid.UUID]*model.StudentSubmission, len(subs))
	for i := range subs {
		subMap[subs[i].ExamID] = &subs[i]
	}

	lobby := make([]LobbyExam, 0, len(exams))
	now := time.Now()

	for i := range exams {
		exam := &exams[i]

		// Hide exams whose window has fully passed and the student never
		// started; a sealed attempt stays listed with its result.
		sub := subMap[exam.ID]
		if sub == nil && exam.EndTime != nil && exam.EndTime.Before(now) {
			continue
		}

		entry := LobbyExam{
			ID:              exam.ID,
			Title:           exam.Title,
			SubjectID:       exam.SubjectID,
			DurationMinutes: exam.DurationMinutes,
			QuestionCount:   len(exam.Questions),
			StartTime:       exam.StartTime,
			EndTime:         exam.EndTime,
			RequiresToken:   exam.AccessType == model.AccessTokenRequired,
		}

		switch {
		case sub.IsFinal():
			entry.LobbyStatus = LobbyStatusCompleted
			entry.TotalScore = sub.TotalScore
			entry.SubmittedAt = sub.SubmittedAt
		case sub != nil:
			entry.LobbyStatus = LobbyStatusInProgress
		case exam.StartTime != nil && exam.StartTime.After(now):
			entry.LobbyStatus = LobbyStatusUpcoming
		default:
			entry.LobbyStatus = LobbyStatusAvailable
		}

		lobby = append(lobby, entry)
	}

	return lobby, nil
}

// PrewarmCache loads every ACTIVE exam payload into Redis. Called once on
// startup so the first wave of students never touches PostgreSQL for exam
// metadata.
func (s *ExamService) PrewarmCache(ctx context.Context) error {
	exams, err := s.examRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active exams: %w", err)
	}

	for i := range exams {
		if err := s.catalog.WarmExam(ctx, &exams[i]); err != nil {
			s.log.Warn().Err(err).Str("exam_id", exams[i].ID.String()).Msg("prewarm failed")
			continue
		}
	}

	s.log.Info().Int("count", len(exams)).Msg("Exam cache prewarmed")
	return nil
}
