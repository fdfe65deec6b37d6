package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smkn73/ujian-backend/internal/middleware"
	"github.com/smkn73/ujian-backend/internal/model"
	"github.com/smkn73/ujian-backend/internal/response"
	"github.com/smkn73/ujian-backend/internal/service"
	"github.com/smkn73/ujian-backend/internal/session"
	"github.com/smkn73/ujian-backend/internal/validator"
)

// StudentPortalHandler handles the student-facing exam endpoints: the lobby
// and the live session lifecycle.
type StudentPortalHandler struct {
	examService *service.ExamService
	sessions    *service.SessionManager
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(examService *service.ExamService, sessions *service.SessionManager) *StudentPortalHandler {
	return &StudentPortalHandler{
		examService: examService,
		sessions:    sessions,
	}
}

// GetLobby godoc
// GET /api/v1/student/lobby
// Returns exams targeted at the student's class, with submission state overlaid.
func (h *StudentPortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.examService.GetLobby(c.Request.Context(), claims.UserID, claims.ClassID, claims.SubClassID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": lobby})
}

// OpenSession godoc
// POST /api/v1/student/exams/:exam_id/session
// Opens (or resumes) the exam session and returns its full snapshot. Gate
// refusals come back inside the snapshot, not as transport errors.
func (h *StudentPortalHandler) OpenSession(c *gin.Context) {
	claims, examID, ok := h.authExam(c)
	if !ok {
		return
	}

	ctrl, err := h.sessions.Open(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		// The submission store was unreachable; the student may retry.
		response.Fail(c, http.StatusServiceUnavailable, response.ErrSessionUnavailable)
		return
	}

	snap := ctrl.Snapshot()
	if snap.State == session.StateError && snap.GateError != nil {
		status, code := gateErrCode(snap.GateError.Kind)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, snap)
}

// gateErrCode maps a terminal gate refusal to its transport representation.
func gateErrCode(kind session.GateKind) (int, response.ErrCode) {
	switch kind {
	case session.GateNotFound:
		return http.StatusNotFound, response.ErrExamNotFound
	case session.GateNotYetOpen:
		return http.StatusForbidden, response.ErrExamNotYetOpen
	case session.GateWindowClosed:
		return http.StatusForbidden, response.ErrExamWindowClosed
	case session.GateNotActive:
		return http.StatusForbidden, response.ErrExamNotActive
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// GetSessionState godoc
// GET /api/v1/student/exams/:exam_id/session
// Returns the current snapshot. Covers the page-reload path: answers,
// presentation order and remaining time all come back in one read.
func (h *StudentPortalHandler) GetSessionState(c *gin.Context) {
	claims, examID, ok := h.authExam(c)
	if !ok {
		return
	}

	ctrl, err := h.sessions.Open(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrSessionUnavailable)
		return
	}

	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

// Acknowledge godoc
// POST /api/v1/student/exams/:exam_id/session/acknowledge
// Records the prerequisite acknowledgement and advances the gate sequence.
func (h *StudentPortalHandler) Acknowledge(c *gin.Context) {
	claims, examID, ok := h.authExam(c)
	if !ok {
		return
	}

	ctrl := h.sessions.Get(examID, claims.UserID)
	if ctrl == nil {
		response.Fail(c, http.StatusConflict, response.ErrSessionNotLive)
		return
	}

	if err := ctrl.Acknowledge(c.Request.Context()); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

// SubmitToken godoc
// POST /api/v1/student/exams/:exam_id/session/token
// Validates the exam entry token. Mismatches are recoverable; retries are
// unlimited.
func (h *StudentPortalHandler) SubmitToken(c *gin.Context) {
	claims, examID, ok := h.authExam(c)
	if !ok {
		return
	}

	var req model.SubmitTokenRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctrl := h.sessions.Get(examID, claims.UserID)
	if ctrl == nil {
		response.Fail(c, http.StatusConflict, response.ErrSessionNotLive)
		return
	}

	if err := ctrl.SubmitToken(c.Request.Context(), req.Token); err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidToken):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidExamToken)
		case errors.Is(err, session.ErrNotInProgress):
			response.Fail(c, http.StatusConflict, response.ErrSessionNotLive)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

// SetAnswer godoc
// PUT /api/v1/student/exams/:exam_id/session/answers/:question_id
// Stores one answer in the live session. Persistence happens on the
// autosave debounce, not here.
func (h *StudentPortalHandler) SetAnswer(c *gin.Context) {
	claims, examID, ok := h.authExam(c)
	if !ok {
		return
	}

	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SetAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctrl := h.sessions.Get(examID, claims.UserID)
	if ctrl == nil {
		response.Fail(c, http.StatusConflict, response.ErrSessionNotLive)
		return
	}

	if err := ctrl.SetAnswer(questionID, req.Answer); err != nil {
		response.Fail(c, http.StatusConflict, response.ErrSessionNotLive)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// SetPosition godoc
// PUT /api/v1/student/exams/:exam_id/session/position
// Moves the navigation cursor. Out-of-range indexes are clamped silently.
func (h *StudentPortalHandler) SetPosition(c *gin.Context) {
	claims, examID, ok := h.authExam(c)
	if !ok {
		return
	}

	var req model.SetPositionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctrl := h.sessions.Get(examID, claims.UserID)
	if ctrl == nil {
		response.Fail(c, http.StatusConflict, response.ErrSessionNotLive)
		return
	}

	if err := ctrl.SetPosition(session.Tab(req.Tab), req.Index); err != nil {
		response.Fail(c, http.StatusConflict, response.ErrSessionNotLive)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}

// RequestSubmit godoc
// POST /api/v1/student/exams/:exam_id/session/submit
// Starts a manual submission. Unanswered questions come back as an advisory
// list the student must confirm past.
func (h *StudentPortalHandler) RequestSubmit(c *gin.Context) {
	claims, examID, ok := h.authExam(c)
	if !ok {
		return
	}

	ctrl := h.sessions.Get(examID, claims.UserID)
	if ctrl == nil {
		response.Fail(c, http.StatusConflict, response.ErrSessionNotLive)
		return
	}

	unanswered, finished, err := ctrl.RequestSubmit(c.Request.Context())
	if err != nil {
		if errors.Is(err, session.ErrNotInProgress) {
			response.Fail(c, http.StatusConflict, response.ErrSessionNotLive)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	labels := make([]string, len(unanswered))
	for i, u := range unanswered {
		labels[i] = u.Label()
	}

	response.Success(c, http.StatusOK, gin.H{
		"finished":   finished,
		"unanswered": labels,
		"snapshot":   ctrl.Snapshot(),
	})
}

// ConfirmSubmit godoc
// POST /api/v1/student/exams/:exam_id/session/submit/confirm
// Completes a manual submission despite unanswered questions.
func (h *StudentPortalHandler) ConfirmSubmit(c *gin.Context) {
	claims, examID, ok := h.authExam(c)
	if !ok {
		return
	}

	ctrl := h.sessions.Get(examID, claims.UserID)
	if ctrl == nil {
		response.Fail(c, http.StatusConflict, response.ErrSessionNotLive)
		return
	}

	if err := ctrl.ConfirmSubmit(c.Request.Context()); err != nil {
		if errors.Is(err, session.ErrNotInProgress) {
			response.Fail(c, http.StatusConflict, response.ErrSessionNotLive)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

// CancelSubmit godoc
// POST /api/v1/student/exams/:exam_id/session/submit/cancel
// Dismisses the unanswered-question advisory and resumes the session.
func (h *StudentPortalHandler) CancelSubmit(c *gin.Context) {
	claims, examID, ok := h.authExam(c)
	if !ok {
		return
	}

	ctrl := h.sessions.Get(examID, claims.UserID)
	if ctrl == nil {
		response.Fail(c, http.StatusConflict, response.ErrSessionNotLive)
		return
	}

	ctrl.CancelSubmit()
	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

// authExam extracts the claims and the exam id path param, writing the error
// response itself when either is missing.
func (h *StudentPortalHandler) authExam(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, examID, true
}
