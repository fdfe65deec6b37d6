package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/smkn73/ujian-backend/internal/session"
)

const (
	// sessionIdleTTL is how long a terminal session lingers before eviction,
	// so a student can still reload the result page cheaply.
	sessionIdleTTL = 5 * time.Minute
	sweepInterval  = time.Minute
)

// SessionManager owns the live session controllers, one per exam-student
// pair. The manager creates controllers on demand, drives their timer loops
// and evicts them once they go terminal and idle.
type SessionManager struct {
	cfg session.Config
	log zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*managedSession
}

type managedSession struct {
	ctrl     *session.Controller
	cancel   context.CancelFunc
	lastSeen time.Time
}

// NewSessionManager creates a SessionManager. The config's Now and Rand are
// left nil so each controller defaults to the wall clock and its own seed.
func NewSessionManager(catalog session.Catalog, submissions session.SubmissionStore, audit session.AuditSink, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		cfg: session.Config{
			Catalog:     catalog,
			Submissions: submissions,
			Audit:       audit,
			Logger:      log,
		},
		log:      log.With().Str("component", "session_manager").Logger(),
		sessions: make(map[string]*managedSession),
	}
}

func sessionKey(examID uuid.UUID, studentID int) string {
	return fmt.Sprintf("%s:%d", examID, studentID)
}

// Open returns the live controller for the pair, creating and loading it
// first if necessary. A controller stuck in Loading after a failed load is
// discarded so the next call retries from scratch. A controller that ended
// in a gate refusal is likewise discarded: each open re-evaluates the gates
// against the current time, so an exam refused with NOT_YET_OPEN becomes
// enterable once its window opens. Finished sessions stay cached for
// read-only replay.
func (m *SessionManager) Open(ctx context.Context, examID uuid.UUID, studentID int) (*session.Controller, error) {
	m.mu.Lock()
	key := sessionKey(examID, studentID)
	if ms, ok := m.sessions[key]; ok {
		if ms.ctrl.State() == session.StateError {
			ms.cancel()
			delete(m.sessions, key)
		} else {
			ms.lastSeen = time.Now()
			ctrl := ms.ctrl
			m.mu.Unlock()
			return ctrl, nil
		}
	}

	ctrl := session.New(examID, studentID, m.cfg)
	runCtx, cancel := context.WithCancel(context.Background())
	m.sessions[key] = &managedSession{ctrl: ctrl, cancel: cancel, lastSeen: time.Now()}
	m.mu.Unlock()

	if err := ctrl.Load(ctx); err != nil {
		m.evict(key)
		return nil, err
	}

	go ctrl.Run(runCtx)
	return ctrl, nil
}

// Get returns the live controller for the pair, or nil if none is open.
func (m *SessionManager) Get(examID uuid.UUID, studentID int) *session.Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[sessionKey(examID, studentID)]
	if !ok {
		return nil
	}
	ms.lastSeen = time.Now()
	return ms.ctrl
}

// Close tears down the controller for the pair, if any.
func (m *SessionManager) Close(examID uuid.UUID, studentID int) {
	m.evict(sessionKey(examID, studentID))
}

// Run drives the eviction sweep until the context is cancelled, then tears
// down every remaining session.
func (m *SessionManager) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *SessionManager) evict(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms, ok := m.sessions[key]; ok {
		ms.cancel()
		delete(m.sessions, key)
	}
}

// sweep drops sessions that finished or failed and have been idle. Live
// sessions stay: their countdown must keep ticking even with no client
// connected.
func (m *SessionManager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	evicted := 0
	for key, ms := range m.sessions {
		state := ms.ctrl.State()
		terminal := state == session.StateFinished || state == session.StateError
		if terminal && now.Sub(ms.lastSeen) > sessionIdleTTL {
			ms.cancel()
			delete(m.sessions, key)
			evicted++
		}
	}
	if evicted > 0 {
		m.log.Debug().Int("count", evicted).Msg("evicted idle sessions")
	}
}

func (m *SessionManager) shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, ms := range m.sessions {
		ms.cancel()
		delete(m.sessions, key)
	}
	m.log.Info().Msg("session manager stopped")
}
