package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smkn73/ujian-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// GetByIDs retrieves questions by id. Missing ids are silently omitted; the
// caller decides how to treat an incomplete result.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, subject_id, type, text, image_url, audio_url, math_formula,
		        options, reference_answer, points, is_validated, created_by
		 FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.SubjectID, &q.Type, &q.Text, &q.ImageURL, &q.AudioURL, &q.MathFormula,
			&q.Options, &q.ReferenceAnswer, &q.Points, &q.IsValidated, &q.CreatedBy); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (subject_id, type, text, image_url, audio_url, math_formula, options, reference_answer, points, is_validated, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		q.SubjectID, q.Type, q.Text, q.ImageURL, q.AudioURL, q.MathFormula, q.Options, q.ReferenceAnswer, q.Points, q.IsValidated, q.CreatedBy,
	).Scan(&q.ID)
}
