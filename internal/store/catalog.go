// Package store binds the session engine's collaborator contracts to the
// production backends: PostgreSQL for durable state, Redis for the hot path
// (cached exam payloads, live answer hashes, persistence queues).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/smkn73/ujian-backend/internal/config"
	"github.com/smkn73/ujian-backend/internal/model"
	"github.com/smkn73/ujian-backend/internal/repository"
)

// cachedExam wraps the exam for Redis storage. The token is json:"-" on the
// model so client serialization never leaks it; the cache needs it back.
type cachedExam struct {
	model.Exam
	Token string `json:"token"`
}

// Catalog serves exams and questions, Redis-first with PostgreSQL fallback
// and self-healing cache fills.
type Catalog struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewCatalog creates a Catalog.
func NewCatalog(examRepo *repository.ExamRepository, questionRepo *repository.QuestionRepository, rdb *redis.Client, log zerolog.Logger) *Catalog {
	return &Catalog{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "catalog").Logger(),
	}
}

// GetExamByID returns the exam, or (nil, nil) when it does not exist.
func (c *Catalog) GetExamByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	key := config.CacheKey.ExamPayloadKey(id.String())

	raw, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		var cached cachedExam
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			exam := cached.Exam
			exam.ExamToken = cached.Token
			return &exam, nil
		}
		// Corrupt cache entry: fall through to the database and rewrite it.
		c.log.Warn().Str("exam_id", id.String()).Msg("corrupt exam cache entry, refetching")
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("exam cache read: %w", err)
	}

	exam, err := c.examRepo.GetByID(ctx, id)
	if err != nil || exam == nil {
		return exam, err
	}

	// Self-heal so the next read is served from Redis.
	if err := c.WarmExam(ctx, exam); err != nil {
		c.log.Warn().Err(err).Str("exam_id", id.String()).Msg("exam cache fill failed")
	}
	return exam, nil
}

// GetQuestionsByIDs returns the questions for the given ids; missing ids are
// omitted.
func (c *Catalog) GetQuestionsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	return c.questionRepo.GetByIDs(ctx, ids)
}

// WarmExam writes an exam payload into the cache. Called on fallback reads
// and by the startup prewarm pass.
func (c *Catalog) WarmExam(ctx context.Context, exam *model.Exam) error {
	payload, err := json.Marshal(cachedExam{Exam: *exam, Token: exam.ExamToken})
	if err != nil {
		return fmt.Errorf("marshal exam payload: %w", err)
	}
	return c.rdb.Set(ctx, config.CacheKey.ExamPayloadKey(exam.ID.String()), payload, 0).Err()
}

// InvalidateExam drops an exam's cached payload and question list.
func (c *Catalog) InvalidateExam(ctx context.Context, examID uuid.UUID) error {
	return c.rdb.Del(ctx,
		config.CacheKey.ExamPayloadKey(examID.String()),
		config.CacheKey.ExamQuestionsKey(examID.String()),
	).Err()
}
