package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smkn73/ujian-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, title, subject_id, class_ids, sub_class_ids, creator_id,
		questions, duration_minutes, kkm, randomize_questions, randomize_answers,
		status, start_time, end_time, show_prerequisites, prerequisites_text,
		access_type, exam_token, academic_year, created_at`

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.Title, &e.SubjectID, &e.ClassIDs, &e.SubClassIDs, &e.CreatorID,
		&e.Questions, &e.DurationMinutes, &e.KKM, &e.RandomizeQuestions, &e.RandomizeAnswers,
		&e.Status, &e.StartTime, &e.EndTime, &e.ShowPrerequisites, &e.PrerequisitesText,
		&e.AccessType, &e.ExamToken, &e.AcademicYear, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam by its UUID. Returns (nil, nil) when absent.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListActiveForClass retrieves ACTIVE exams targeted at a class/sub-class
// combination, newest first.
func (r *ExamRepository) ListActiveForClass(ctx context.Context, classID, subClassID int) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+`
		 FROM exams
		 WHERE status = $1
		   AND $2 = ANY(class_ids)
		   AND (sub_class_ids = '{}' OR $3 = ANY(sub_class_ids))
		 ORDER BY created_at DESC`,
		model.ExamStatusActive, classID, subClassID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e := model.Exam{}
		if err := rows.Scan(&e.ID, &e.Title, &e.SubjectID, &e.ClassIDs, &e.SubClassIDs, &e.CreatorID,
			&e.Questions, &e.DurationMinutes, &e.KKM, &e.RandomizeQuestions, &e.RandomizeAnswers,
			&e.Status, &e.StartTime, &e.EndTime, &e.ShowPrerequisites, &e.PrerequisitesText,
			&e.AccessType, &e.ExamToken, &e.AcademicYear, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// ListActive returns all ACTIVE exams. Used for cache prewarming on startup.
func (r *ExamRepository) ListActive(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams WHERE status = $1 ORDER BY created_at DESC`,
		model.ExamStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e := model.Exam{}
		if err := rows.Scan(&e.ID, &e.Title, &e.SubjectID, &e.ClassIDs, &e.SubClassIDs, &e.CreatorID,
			&e.Questions, &e.DurationMinutes, &e.KKM, &e.RandomizeQuestions, &e.RandomizeAnswers,
			&e.Status, &e.StartTime, &e.EndTime, &e.ShowPrerequisites, &e.PrerequisitesText,
			&e.AccessType, &e.ExamToken, &e.AcademicYear, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}
