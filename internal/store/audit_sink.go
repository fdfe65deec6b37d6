package store

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/smkn73/ujian-backend/internal/config"
	"github.com/smkn73/ujian-backend/internal/session"
)

// AuditPayload is the queue item consumed by worker.AuditWorker.
type AuditPayload struct {
	Kind      string `json:"kind"`
	StudentID int    `json:"student_id"`
	ExamID    string `json:"exam_id"`
	Timestamp int64  `json:"timestamp"`
	Detail    string `json:"detail"`
}

// AuditSink queues integrity signals into Redis for deferred bulk insert.
// Fire-and-forget: a failed enqueue is logged and dropped, never surfaced to
// the session.
type AuditSink struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewAuditSink creates an AuditSink.
func NewAuditSink(rdb *redis.Client, log zerolog.Logger) *AuditSink {
	return &AuditSink{
		rdb: rdb,
		log: log.With().Str("component", "audit_sink").Logger(),
	}
}

// Record enqueues one audit event.
func (a *AuditSink) Record(ctx context.Context, ev session.AuditEvent) {
	payload, err := json.Marshal(AuditPayload{
		Kind:      ev.Kind,
		StudentID: ev.StudentID,
		ExamID:    ev.ExamID.String(),
		Timestamp: ev.Timestamp.Unix(),
		Detail:    ev.Detail,
	})
	if err != nil {
		a.log.Error().Err(err).Msg("marshal audit payload")
		return
	}
	if err := a.rdb.RPush(ctx, config.WorkerKey.PersistAuditQueue, payload).Err(); err != nil {
		a.log.Error().Err(err).Str("kind", ev.Kind).Msg("audit enqueue failed")
	}
}
