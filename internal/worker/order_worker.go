package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/smkn73/ujian-backend/internal/config"
	"github.com/smkn73/ujian-backend/internal/store"
)

const (
	OrderBatchSize    = 50
	OrderBatchTimeout = 2 * time.Second
	OrderPollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// OrderWorker persists the per-student question and option presentation
// order in batches. Each submission produces exactly one order payload, so
// the batch UPDATE never races with itself.
type OrderWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewOrderWorker creates a new OrderWorker.
func NewOrderWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *OrderWorker {
	return &OrderWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "order_worker").Logger(),
	}
}

func (w *OrderWorker) Start(ctx context.Context) {
	w.log.Info().Msg("OrderWorker started")

	batch := make([]*store.OrderPayload, 0, OrderBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= OrderBatchSize || time.Since(lastFlush) >= OrderBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, OrderPollTimeout, config.WorkerKey.PersistQuestionOrderQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p store.OrderPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *OrderWorker) flushSafe(ctx context.Context, batch []*store.OrderPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpdate(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk order update failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistQuestionOrderQueue, raw)
			}
		}
	}
}

func (w *OrderWorker) bulkUpdate(ctx context.Context, batch []*store.OrderPayload) error {
	n := len(batch)

	examIDs := make([]uuid.UUID, 0, n)
	students := make([]int, 0, n)
	orders := make([][]byte, 0, n)
	options := make([][]byte, 0, n)

	for _, p := range batch {
		eID, err := uuid.Parse(p.ExamID)
		if err != nil {
			return err
		}

		ob, _ := json.Marshal(p.Order)
		oo, _ := json.Marshal(p.OptionOrder)

		examIDs = append(examIDs, eID)
		students = append(students, p.StudentID)
		orders = append(orders, ob)
		options = append(options, oo)
	}

	query := `
		UPDATE submissions AS s
		SET question_order = t.qo,
		    option_order = t.oo
		FROM (
			SELECT
				u.exam_id,
				u.student_id,
				u.qo,
				u.oo
			FROM UNNEST(
				$1::uuid[],
				$2::int[],
				$3::jsonb[],
				$4::jsonb[]
			) AS u (exam_id, student_id, qo, oo)
		) AS t
		WHERE s.exam_id = t.exam_id
		  AND s.student_id = t.student_id
	`

	_, err := w.pool.Exec(ctx, query, examIDs, students, orders, options)
	return err
}

func (w *OrderWorker) persistSingle(ctx context.Context, p *store.OrderPayload) error {
	eID, err := uuid.Parse(p.ExamID)
	if err != nil {
		return err
	}

	ob, _ := json.Marshal(p.Order)
	oo, _ := json.Marshal(p.OptionOrder)

	_, err = w.pool.Exec(ctx,
		`UPDATE submissions
		 SET question_order = $1, option_order = $2
		 WHERE exam_id = $3 AND student_id = $4`,
		ob, oo, eID, p.StudentID,
	)

	return err
}
