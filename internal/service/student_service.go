package service

import (
	"context"

	"github.com/smkn73/ujian-backend/internal/model"
	"github.com/smkn73/ujian-backend/internal/repository"
)

// StudentService handles student account lookups.
type StudentService struct {
	repo *repository.StudentRepository
}

// NewStudentService creates a new StudentService.
func NewStudentService(repo *repository.StudentRepository) *StudentService {
	return &StudentService{repo: repo}
}

// GetByID retrieves a student by primary key.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByNISN retrieves a student by NISN for login.
func (s *StudentService) GetByNISN(ctx context.Context, nisn string) (*model.Student, error) {
	return s.repo.GetByNISN(ctx, nisn)
}

// Create registers a new student account.
func (s *StudentService) Create(ctx context.Context, student *model.Student) error {
	return s.repo.Create(ctx, student)
}
