package websocket

import (
	"github.com/stemsi/exstem-prep/internal/engine"
	"github.com/stemsi/exstem-prep/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect   Action = "select"
	ActionGoTo     Action = "goto"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload is the single client message shape. Position and Option are only read
// by the actions that need them.
type RequestPayload struct {
	Action   Action `json:"action"`
	Position *int   `json:"position,omitempty"`
	Option   *int   `json:"option,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick   Event = "tick"
	EventState  Event = "state"
	EventGraded Event = "graded"
	EventClosed Event = "closed"
	EventError  Event = "error"
	EventPong   Event = "pong"
)

type TickResponse struct {
	Event            Event             `json:"event"`
	RemainingSeconds int               `json:"remaining_seconds"`
	Clock            engine.ClockState `json:"clock"`
}

type StateResponse struct {
	Event Event       `json:"event"`
	View  engine.View `json:"view"`
}

type GradedResponse struct {
	Event  Event               `json:"event"`
	Result model.SessionResult `json:"result"`
}

type ClosedResponse struct {
	Event Event `json:"event"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
