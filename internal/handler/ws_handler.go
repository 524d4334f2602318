package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-prep/internal/engine"
	"github.com/stemsi/exstem-prep/internal/logger"
	"github.com/stemsi/exstem-prep/internal/middleware"
	"github.com/stemsi/exstem-prep/internal/response"
	"github.com/stemsi/exstem-prep/internal/service"
	ws "github.com/stemsi/exstem-prep/internal/websocket"
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

// WSHandler streams a live session: countdown ticks out, candidate actions in.
type WSHandler struct {
	sessionService *service.SessionService
	tickInterval   time.Duration
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. tickInterval paces the tick events.
func NewWSHandler(sessionService *service.SessionService, tickInterval time.Duration, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	return &WSHandler{
		sessionService: sessionService,
		tickInterval:   tickInterval,
		log:            logger.Component(log, "ws_handler"),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:id/stream?token=
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	userID := claims.UserID

	// Reject unknown sessions before the upgrade so the client gets a plain 404.
	sess, err := h.sessionService.Watch(userID, id)
	if err != nil {
		failWith(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", userID).
		Str("session_id", id.String()).
		Logger()
	wsLog.Info().Msg("Candidate connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	out := ws.NewOutbox(32)
	go func() {
		if err := out.Run(ctx, conn); err != nil {
			wsLog.Debug().Err(err).Msg("Writer stopped")
			cancel()
		}
	}()

	out.Send(ws.StateResponse{Event: ws.EventState, View: sess.View()})
	go h.streamClock(ctx, sess, out)

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		h.dispatch(userID, id, sess, &msg, out)
	}
}

// streamClock emits tick events until the session finishes, then the final event.
func (h *WSHandler) streamClock(ctx context.Context, sess *engine.Session, out *ws.Outbox) {
	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Done():
			if res, ok := sess.Result(); ok {
				out.Send(ws.GradedResponse{Event: ws.EventGraded, Result: res})
			} else {
				out.Send(ws.ClosedResponse{Event: ws.EventClosed})
			}
			return
		case <-ticker.C:
			v := sess.View()
			out.TrySend(ws.TickResponse{Event: ws.EventTick, RemainingSeconds: v.RemainingSeconds, Clock: v.Clock})
		}
	}
}

func (h *WSHandler) dispatch(userID int, id uuid.UUID, sess *engine.Session, msg *ws.RequestPayload, out *ws.Outbox) {
	var (
		view engine.View
		err  error
	)

	switch msg.Action {
	case ws.ActionPing:
		out.Send(ws.PongResponse{Event: ws.EventPong})
		return
	case ws.ActionSelect:
		if msg.Position == nil || msg.Option == nil {
			out.SendError(string(response.ErrValidation), "position and option are required")
			return
		}
		view, err = h.sessionService.SelectAnswer(userID, id, *msg.Position, *msg.Option)
	case ws.ActionGoTo:
		if msg.Position == nil {
			out.SendError(string(response.ErrValidation), "position is required")
			return
		}
		view, err = h.sessionService.GoTo(userID, id, *msg.Position)
	case ws.ActionNext:
		view, err = h.sessionService.Next(userID, id)
	case ws.ActionPrevious:
		view, err = h.sessionService.Previous(userID, id)
	case ws.ActionSubmit:
		// Fresh submits are announced by streamClock once Done closes.
		select {
		case <-sess.Done():
			res, subErr := h.sessionService.Submit(userID, id)
			if subErr != nil {
				err = subErr
				break
			}
			out.Send(ws.GradedResponse{Event: ws.EventGraded, Result: res})
			return
		default:
			_, err = h.sessionService.Submit(userID, id)
			if err == nil {
				return
			}
		}
	default:
		h.log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		out.SendError(string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		return
	}

	if err != nil {
		_, code, _ := classify(err)
		out.SendError(string(code), err.Error())
		return
	}
	out.Send(ws.StateResponse{Event: ws.EventState, View: view})
}
