package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smkn73/ujian-backend/internal/model"
)

// SubmissionRepository handles student submission data access. The submission
// row carries the attempt lifecycle and presentation order; individual
// answers live in student_answers and are joined in on read.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// GetByExamAndStudent retrieves a submission with its answers.
// Returns (nil, nil) when the student has not started this exam.
func (r *SubmissionRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.StudentSubmission, error) {
	s := &model.StudentSubmission{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, question_order, option_order,
		        start_time, end_time, submitted_at, total_score, is_graded
		 FROM submissions
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&s.ID, &s.ExamID, &s.StudentID, &s.QuestionOrder, &s.OptionOrder,
		&s.StartTime, &s.EndTime, &s.SubmittedAt, &s.TotalScore, &s.IsGraded)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	answers, err := r.ListAnswers(ctx, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	s.Answers = answers
	return s, nil
}

// ListAnswers retrieves all persisted answers for a submission.
func (r *SubmissionRepository) ListAnswers(ctx context.Context, examID uuid.UUID, studentID int) ([]model.StudentAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, answer, is_correct, score
		 FROM student_answers
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.StudentAnswer
	for rows.Next() {
		var a model.StudentAnswer
		if err := rows.Scan(&a.QuestionID, &a.Answer, &a.IsCorrect, &a.Score); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// Create inserts a new submission (student enters the exam). Idempotent under
// concurrent entry: the loser of the race gets pgx.ErrNoRows and should fetch
// the existing row instead.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.StudentSubmission) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO submissions (id, exam_id, student_id, start_time)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING id, start_time`,
		s.ID, s.ExamID, s.StudentID, s.StartTime,
	).Scan(&s.ID, &s.StartTime)
}

// UpdateOrder persists the presented question and option permutation.
func (r *SubmissionRepository) UpdateOrder(ctx context.Context, s *model.StudentSubmission) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET question_order = $1, option_order = $2
		 WHERE exam_id = $3 AND student_id = $4`,
		s.QuestionOrder, s.OptionOrder, s.ExamID, s.StudentID)
	return err
}

// Finalize seals a submission and writes the reconciled answers in one
// transaction. The terminal write bypasses the async queues on purpose: once
// the student sees a result it must already be durable.
func (r *SubmissionRepository) Finalize(ctx context.Context, s *model.StudentSubmission) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE submissions
		 SET question_order = $1, option_order = $2,
		     end_time = $3, submitted_at = $4, total_score = $5
		 WHERE exam_id = $6 AND student_id = $7`,
		s.QuestionOrder, s.OptionOrder,
		s.EndTime, s.SubmittedAt, s.TotalScore, s.ExamID, s.StudentID)
	if err != nil {
		return fmt.Errorf("seal submission: %w", err)
	}

	for _, a := range s.Answers {
		_, err = tx.Exec(ctx,
			`INSERT INTO student_answers (exam_id, student_id, question_id, answer, is_correct, score)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (exam_id, student_id, question_id) DO UPDATE
			 SET answer = EXCLUDED.answer, is_correct = EXCLUDED.is_correct,
			     score = EXCLUDED.score, updated_at = NOW()`,
			s.ExamID, s.StudentID, a.QuestionID, a.Answer, a.IsCorrect, a.Score)
		if err != nil {
			return fmt.Errorf("upsert answer: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListByStudent retrieves all submissions for a student, newest first.
// Answers are not joined; the lobby only needs lifecycle and score.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.StudentSubmission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_id, question_order, option_order,
		        start_time, end_time, submitted_at, total_score, is_graded
		 FROM submissions
		 WHERE student_id = $1
		 ORDER BY start_time DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.StudentSubmission
	for rows.Next() {
		var s model.StudentSubmission
		if err := rows.Scan(&s.ID, &s.ExamID, &s.StudentID, &s.QuestionOrder, &s.OptionOrder,
			&s.StartTime, &s.EndTime, &s.SubmittedAt, &s.TotalScore, &s.IsGraded); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
