package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/smkn73/ujian-backend/internal/config"
	"github.com/smkn73/ujian-backend/internal/model"
	"github.com/smkn73/ujian-backend/internal/repository"
)

// AnswerPayload is the queue item consumed by worker.AnswerWorker.
type AnswerPayload struct {
	StudentID int    `json:"student_id"`
	ExamID    string `json:"exam_id"`
	QID       string `json:"q_id"`
	Answer    string `json:"answer"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// OrderPayload is the queue item consumed by worker.OrderWorker.
type OrderPayload struct {
	ExamID      string              `json:"exam_id"`
	StudentID   int                 `json:"student_id"`
	Order       []string            `json:"order"`
	OptionOrder map[string][]string `json:"option_order"`
}

// orderStageTTL bounds how long a staged order payload is trusted to reach
// the worker before the sentinel expires and the next flush re-stages it.
const orderStageTTL = 5 * time.Minute

// SubmissionStore persists submissions on the two-lane model: autosave
// updates land in Redis and are queued for the workers, the terminal write
// goes straight to PostgreSQL and clears the Redis residue.
type SubmissionStore struct {
	repo *repository.SubmissionRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewSubmissionStore creates a SubmissionStore.
func NewSubmissionStore(repo *repository.SubmissionRepository, rdb *redis.Client, log zerolog.Logger) *SubmissionStore {
	return &SubmissionStore{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "submission_store").Logger(),
	}
}

// GetSubmission loads the durable submission and overlays any autosaved
// answers still sitting in the Redis hash ahead of the worker drain.
// Returns (nil, nil) when the student has not started this exam.
func (s *SubmissionStore) GetSubmission(ctx context.Context, examID uuid.UUID, studentID int) (*model.StudentSubmission, error) {
	sub, err := s.repo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, nil
	}

	if !sub.IsFinal() {
		if err := s.overlayLiveAnswers(ctx, sub); err != nil {
			// The durable copy is still usable; the overlay is best effort.
			s.log.Warn().Err(err).Str("exam_id", examID.String()).Int("student_id", studentID).
				Msg("live answer overlay failed")
		}
		s.healStartCache(ctx, sub)
	}
	return sub, nil
}

// CreateSubmission inserts the submission and caches its start instant.
// Idempotent under concurrent entry: whoever loses the insert race adopts
// the winner's row.
func (s *SubmissionStore) CreateSubmission(ctx context.Context, sub *model.StudentSubmission) error {
	if err := s.repo.Create(ctx, sub); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, fetchErr := s.repo.GetByExamAndStudent(ctx, sub.ExamID, sub.StudentID)
			if fetchErr != nil || existing == nil {
				return fmt.Errorf("concurrent entry detected, fetch failed: %w", fetchErr)
			}
			*sub = *existing
		} else {
			return fmt.Errorf("create submission: %w", err)
		}
	}

	startKey := config.CacheKey.SubmissionStartKey(sub.ExamID.String(), sub.StudentID)
	if err := s.rdb.Set(ctx, startKey, sub.StartTime.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("start time cache fill failed")
	}
	return nil
}

// UpdateSubmission routes by lifecycle: a sealed submission is written
// synchronously to PostgreSQL, a live one goes through Redis and the queues.
func (s *SubmissionStore) UpdateSubmission(ctx context.Context, sub *model.StudentSubmission) error {
	if sub.IsFinal() {
		if err := s.repo.Finalize(ctx, sub); err != nil {
			return err
		}
		s.clearLiveKeys(ctx, sub.ExamID, sub.StudentID)
		return nil
	}
	return s.stageLive(ctx, sub)
}

// stageLive pushes the current answers into the Redis hash and enqueues the
// per-answer and order payloads for the workers.
func (s *SubmissionStore) stageLive(ctx context.Context, sub *model.StudentSubmission) error {
	examID := sub.ExamID.String()
	answersKey := config.CacheKey.SubmissionAnswersKey(examID, sub.StudentID)

	pipe := s.rdb.Pipeline()
	for _, a := range sub.Answers {
		pipe.HSet(ctx, answersKey, a.QuestionID.String(), a.Answer)
		payload, err := json.Marshal(AnswerPayload{
			StudentID: sub.StudentID,
			ExamID:    examID,
			QID:       a.QuestionID.String(),
			Answer:    a.Answer,
			IsCorrect: a.IsCorrect,
		})
		if err != nil {
			return fmt.Errorf("marshal answer payload: %w", err)
		}
		pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stage answers: %w", err)
	}

	return s.stageOrder(ctx, sub)
}

// stageOrder enqueues the presentation order. The SetNX sentinel dedups the
// push across flushes; it expires so a payload lost before the worker drains
// it gets re-staged on a later flush. Re-persisting the same order is
// harmless: the worker's UPDATE writes identical values.
func (s *SubmissionStore) stageOrder(ctx context.Context, sub *model.StudentSubmission) error {
	if len(sub.QuestionOrder) == 0 {
		return nil
	}
	examID := sub.ExamID.String()

	set, err := s.rdb.SetNX(ctx, config.CacheKey.SubmissionOrderKey(examID, sub.StudentID), 1, orderStageTTL).Result()
	if err != nil {
		return fmt.Errorf("order sentinel: %w", err)
	}
	if !set {
		return nil
	}

	order := make([]string, len(sub.QuestionOrder))
	for i, id := range sub.QuestionOrder {
		order[i] = id.String()
	}
	payload, err := json.Marshal(OrderPayload{
		ExamID:      examID,
		StudentID:   sub.StudentID,
		Order:       order,
		OptionOrder: sub.OptionOrder,
	})
	if err != nil {
		return fmt.Errorf("marshal order payload: %w", err)
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistQuestionOrderQueue, payload).Err()
}

// overlayLiveAnswers merges the Redis answers hash over the durable answers.
// The hash always holds the freshest autosaved value.
func (s *SubmissionStore) overlayLiveAnswers(ctx context.Context, sub *model.StudentSubmission) error {
	answersKey := config.CacheKey.SubmissionAnswersKey(sub.ExamID.String(), sub.StudentID)
	live, err := s.rdb.HGetAll(ctx, answersKey).Result()
	if err != nil {
		return err
	}
	if len(live) == 0 {
		return nil
	}

	byID := make(map[string]int, len(sub.Answers))
	for i, a := range sub.Answers {
		byID[a.QuestionID.String()] = i
	}
	for qid, answer := range live {
		id, err := uuid.Parse(qid)
		if err != nil {
			continue
		}
		if i, ok := byID[qid]; ok {
			sub.Answers[i].Answer = answer
		} else {
			sub.Answers = append(sub.Answers, model.StudentAnswer{QuestionID: id, Answer: answer})
		}
	}
	return nil
}

// healStartCache rewrites the start-time cache entry if it was evicted, so
// countdown reads stay off PostgreSQL.
func (s *SubmissionStore) healStartCache(ctx context.Context, sub *model.StudentSubmission) {
	startKey := config.CacheKey.SubmissionStartKey(sub.ExamID.String(), sub.StudentID)
	if _, err := s.rdb.Get(ctx, startKey).Result(); errors.Is(err, redis.Nil) {
		_ = s.rdb.Set(ctx, startKey, strconv.FormatInt(sub.StartTime.Unix(), 10), 0).Err()
	}
}

// clearLiveKeys removes the per-session Redis state after the terminal write.
func (s *SubmissionStore) clearLiveKeys(ctx context.Context, examID uuid.UUID, studentID int) {
	id := examID.String()
	if err := s.rdb.Del(ctx,
		config.CacheKey.SubmissionAnswersKey(id, studentID),
		config.CacheKey.SubmissionStartKey(id, studentID),
		config.CacheKey.SubmissionOrderKey(id, studentID),
	).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", id).Int("student_id", studentID).
			Msg("live key cleanup failed")
	}
}
