package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionHidden     Action = "hidden"
	ActionWarningAck Action = "warning_ack"
	ActionUnload     Action = "unload"
	ActionPing       Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// HiddenRequest is sent when the exam tab loses visibility.
type HiddenRequest struct {
	Action Action `json:"action"`
}

// WarningAckRequest is sent after the student dismisses the tab warning.
type WarningAckRequest struct {
	Action Action `json:"action"`
}

// UnloadRequest is sent when the browser is about to navigate away.
type UnloadRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick        Event = "tick"
	EventWarning     Event = "warning"
	EventUnloadGuard Event = "unload_guard"
	EventFinished    Event = "finished"
	EventError       Event = "error"
	EventPong        Event = "pong"
)

// TickResponse carries the server-authoritative countdown, pushed once a
// second while the session is live.
type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

// WarningResponse tells the client to show the leave-tab warning dialog.
type WarningResponse struct {
	Event Event `json:"event"`
}

// UnloadGuardResponse answers an unload action: whether the client should
// ask for browser-level confirmation before navigating away.
type UnloadGuardResponse struct {
	Event   Event `json:"event"`
	Confirm bool  `json:"confirm"`
}

// FinishedResponse announces that the submission was sealed, whether
// manually or by the countdown reaching zero.
type FinishedResponse struct {
	Event Event  `json:"event"`
	Cause string `json:"cause"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
