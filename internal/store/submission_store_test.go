package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/smkn73/ujian-backend/internal/config"
	"github.com/smkn73/ujian-backend/internal/model"
)

func newStoreFixture(t *testing.T) (*SubmissionStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewSubmissionStore(nil, rdb, zerolog.Nop()), mr, rdb
}

func liveSubmission() *model.StudentSubmission {
	return &model.StudentSubmission{
		ID:        uuid.New(),
		ExamID:    uuid.New(),
		StudentID: 7,
		Answers: []model.StudentAnswer{
			{QuestionID: uuid.New(), Answer: "b"},
		},
		QuestionOrder: []uuid.UUID{uuid.New(), uuid.New()},
		OptionOrder:   map[string][]string{"q": {"b", "a"}},
		StartTime:     time.Now(),
	}
}

func TestStageOrderQueuedOncePerFlush(t *testing.T) {
	store, _, rdb := newStoreFixture(t)
	ctx := context.Background()
	sub := liveSubmission()

	for i := 0; i < 3; i++ {
		if err := store.UpdateSubmission(ctx, sub); err != nil {
			t.Fatalf("flush %d: %v", i, err)
		}
	}

	n, err := rdb.LLen(ctx, config.WorkerKey.PersistQuestionOrderQueue).Result()
	if err != nil {
		t.Fatalf("llen: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 queued order payload, got %d", n)
	}
}

func TestStageOrderRestagedAfterSentinelExpiry(t *testing.T) {
	store, mr, rdb := newStoreFixture(t)
	ctx := context.Background()
	sub := liveSubmission()

	if err := store.UpdateSubmission(ctx, sub); err != nil {
		t.Fatalf("first flush: %v", err)
	}

	// The worker takes the payload but dies before persisting it.
	if _, err := rdb.LPop(ctx, config.WorkerKey.PersistQuestionOrderQueue).Result(); err != nil {
		t.Fatalf("lpop: %v", err)
	}

	// Within the sentinel's lifetime nothing is re-staged.
	if err := store.UpdateSubmission(ctx, sub); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if n, _ := rdb.LLen(ctx, config.WorkerKey.PersistQuestionOrderQueue).Result(); n != 0 {
		t.Fatalf("expected dedup inside the sentinel window, got %d queued", n)
	}

	// Once the sentinel expires the next flush stages the order again, so a
	// lost payload cannot leave question_order unpersisted forever.
	mr.FastForward(orderStageTTL + time.Second)

	if err := store.UpdateSubmission(ctx, sub); err != nil {
		t.Fatalf("third flush: %v", err)
	}
	n, err := rdb.LLen(ctx, config.WorkerKey.PersistQuestionOrderQueue).Result()
	if err != nil {
		t.Fatalf("llen: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the order to be re-staged after expiry, got %d queued", n)
	}
}

func TestStageLiveWritesAnswersHashAndQueue(t *testing.T) {
	store, _, rdb := newStoreFixture(t)
	ctx := context.Background()
	sub := liveSubmission()

	if err := store.UpdateSubmission(ctx, sub); err != nil {
		t.Fatalf("flush: %v", err)
	}

	answersKey := config.CacheKey.SubmissionAnswersKey(sub.ExamID.String(), sub.StudentID)
	got, err := rdb.HGet(ctx, answersKey, sub.Answers[0].QuestionID.String()).Result()
	if err != nil {
		t.Fatalf("hget: %v", err)
	}
	if got != "b" {
		t.Fatalf("expected autosaved answer %q, got %q", "b", got)
	}

	n, _ := rdb.LLen(ctx, config.WorkerKey.PersistAnswersQueue).Result()
	if n != 1 {
		t.Fatalf("expected 1 queued answer payload, got %d", n)
	}
}
