package handler

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/smkn73/ujian-backend/internal/middleware"
	"github.com/smkn73/ujian-backend/internal/service"
	"github.com/smkn73/ujian-backend/internal/session"
	ws "github.com/smkn73/ujian-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the live exam session: server-side countdown ticks out,
// integrity signals in.
type WSHandler struct {
	sessions *service.SessionManager
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionManager, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// wsConn serializes writes; gorilla/websocket allows only one concurrent
// writer and the tick loop runs beside the read loop.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) write(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ws.WriteTyped(w.conn, v)
}

func (w *wsConn) writeError(msg string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ws.WriteError(w.conn, msg)
}

// ExamSessionStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Upgrades to WebSocket for countdown ticks and integrity reporting.
func (h *WSHandler) ExamSessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	studentID := claims.UserID

	ctrl := h.sessions.Get(examID, studentID)
	if ctrl == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no active session for this exam"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer rawConn.Close()

	conn := &wsConn{conn: rawConn}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	done := make(chan struct{})
	defer close(done)
	go h.streamTicks(conn, ctrl, done, wsLog)

	for {
		var msg ws.RequestEnvelope
		err := ws.ReadJSON(rawConn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionHidden:
			if ctrl.ReportHidden(c.Request.Context()) {
				conn.write(ws.WarningResponse{Event: ws.EventWarning})
			}
		case ws.ActionWarningAck:
			ctrl.AcknowledgeWarning()
		case ws.ActionUnload:
			conn.write(ws.UnloadGuardResponse{Event: ws.EventUnloadGuard, Confirm: ctrl.UnloadAttempt()})
		case ws.ActionPing:
			conn.write(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.writeError("unknown action: " + string(msg.Action))
		}
	}
}

// streamTicks pushes the remaining time once a second and announces the
// terminal transition. The clock source of truth is the session controller;
// the client never counts down on its own.
func (h *WSHandler) streamTicks(conn *wsConn, ctrl *session.Controller, done <-chan struct{}, wsLog zerolog.Logger) {
	ticker := time.NewTicker(session.TickInterval)
	defer ticker.Stop()

	lastRemaining := -1
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap := ctrl.Snapshot()
			switch snap.State {
			case session.StateInProgress:
				lastRemaining = snap.RemainingSeconds
				if err := conn.write(ws.TickResponse{Event: ws.EventTick, RemainingSeconds: snap.RemainingSeconds}); err != nil {
					return
				}
			case session.StateFinished:
				// The countdown reached zero between our last two reads
				// iff this was the auto-submit path.
				cause := "submitted"
				if lastRemaining >= 0 && lastRemaining <= int(session.TickInterval.Seconds()) {
					cause = "timeout"
				}
				if snap.SubmittedAt != nil {
					wsLog.Info().Time("submitted_at", *snap.SubmittedAt).Str("cause", cause).Msg("Session finished")
				}
				conn.write(ws.FinishedResponse{Event: ws.EventFinished, Cause: cause})
				return
			}
		}
	}
}
