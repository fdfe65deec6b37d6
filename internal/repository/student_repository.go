package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smkn73/ujian-backend/internal/model"
)

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByNISN retrieves a student by their NISN for login.
func (r *StudentRepository) GetByNISN(ctx context.Context, nisn string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, nisn, name, password_hash, class_id, sub_class_id
		 FROM students WHERE nisn = $1`, nisn,
	).Scan(&s.ID, &s.NISN, &s.Name, &s.PasswordHash, &s.ClassID, &s.SubClassID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a student by primary key.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, nisn, name, password_hash, class_id, sub_class_id
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.NISN, &s.Name, &s.PasswordHash, &s.ClassID, &s.SubClassID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO students (nisn, name, password_hash, class_id, sub_class_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		s.NISN, s.Name, s.PasswordHash, s.ClassID, s.SubClassID,
	).Scan(&s.ID)
}
