package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/smkn73/ujian-backend/internal/middleware"
	"github.com/smkn73/ujian-backend/internal/model"
	"github.com/smkn73/ujian-backend/internal/service"
	"github.com/smkn73/ujian-backend/internal/session"
	ws "github.com/smkn73/ujian-backend/internal/websocket"
)

type stubCatalog struct {
	exam      *model.Exam
	questions []model.Question
}

func (c *stubCatalog) GetExamByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	if c.exam == nil || c.exam.ID != id {
		return nil, nil
	}
	cp := *c.exam
	return &cp, nil
}

func (c *stubCatalog) GetQuestionsByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	var out []model.Question
	for _, id := range ids {
		for _, q := range c.questions {
			if q.ID == id {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

type stubSubmissions struct {
	mu  sync.Mutex
	sub *model.StudentSubmission
}

func (f *stubSubmissions) GetSubmission(context.Context, uuid.UUID, int) (*model.StudentSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub == nil {
		return nil, nil
	}
	cp := *f.sub
	return &cp, nil
}

func (f *stubSubmissions) CreateSubmission(_ context.Context, sub *model.StudentSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sub
	f.sub = &cp
	return nil
}

func (f *stubSubmissions) UpdateSubmission(_ context.Context, sub *model.StudentSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sub
	f.sub = &cp
	return nil
}

type stubAudit struct {
	mu     sync.Mutex
	events []session.AuditEvent
}

func (s *stubAudit) Record(_ context.Context, ev session.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *stubAudit) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// dialSession opens a live session for student 7 and connects a websocket
// client to its stream.
func dialSession(t *testing.T) (*websocket.Conn, *session.Controller, *stubAudit, func()) {
	t.Helper()

	qID := uuid.New()
	examID := uuid.New()
	catalog := &stubCatalog{
		exam: &model.Exam{
			ID:              examID,
			Title:           "Ulangan Harian",
			Status:          model.ExamStatusActive,
			AccessType:      model.AccessOpen,
			DurationMinutes: 30,
			Questions:       []model.ExamQuestion{{QuestionID: qID, Points: 10}},
		},
		questions: []model.Question{{
			ID:   qID,
			Type: model.QuestionTypeMultipleChoice,
			Text: "2+2?",
			Options: []model.QuestionOption{
				{ID: "a", Text: "3"},
				{ID: "b", Text: "4", IsCorrect: true},
			},
			Points: 10,
		}},
	}
	audit := &stubAudit{}
	mgr := service.NewSessionManager(catalog, &stubSubmissions{}, audit, zerolog.Nop())

	ctrl, err := mgr.Open(context.Background(), examID, 7)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if ctrl.State() != session.StateInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", ctrl.State())
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	wsHandler := NewWSHandler(mgr, zerolog.Nop(), nil)
	router.GET("/ws/v1/student/exams/:exam_id/stream", func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: 7, TokenType: service.TokenTypeStudent})
		wsHandler.ExamSessionStream(c)
	})

	srv := httptest.NewServer(router)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/student/exams/" + examID.String() + "/stream"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}

	cleanup := func() {
		conn.Close()
		srv.Close()
	}
	return conn, ctrl, audit, cleanup
}

// readEvent reads frames until one with the wanted event arrives, skipping
// the periodic ticks.
func readEvent(t *testing.T, conn *websocket.Conn, want ws.Event) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		ev, _ := msg["event"].(string)
		if ws.Event(ev) == want {
			return msg
		}
		if ev != string(ws.EventTick) {
			t.Fatalf("expected %q, got %q", want, ev)
		}
	}
	t.Fatalf("no %q event within deadline", want)
	return nil
}

func TestStreamAnswersUnloadWithGuardDecision(t *testing.T) {
	conn, _, _, cleanup := dialSession(t)
	defer cleanup()

	if err := conn.WriteJSON(ws.UnloadRequest{Action: ws.ActionUnload}); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readEvent(t, conn, ws.EventUnloadGuard)
	confirm, ok := msg["confirm"].(bool)
	if !ok || !confirm {
		t.Fatalf("expected confirm=true while in progress, got %v", msg["confirm"])
	}
}

func TestStreamHiddenRaisesOneWarning(t *testing.T) {
	conn, _, audit, cleanup := dialSession(t)
	defer cleanup()

	if err := conn.WriteJSON(ws.HiddenRequest{Action: ws.ActionHidden}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readEvent(t, conn, ws.EventWarning)

	// A second hidden before the warning is acknowledged must not re-raise.
	if err := conn.WriteJSON(ws.HiddenRequest{Action: ws.ActionHidden}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readEvent(t, conn, ws.EventPong)

	if got := audit.count(); got != 1 {
		t.Fatalf("expected one audit event, got %d", got)
	}
}
