package websocket

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v any) error {
	conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}

// Outbox serializes every write to a connection through one goroutine, since gorilla
// connections support a single concurrent writer.
type Outbox struct {
	ch   chan any
	done chan struct{}
}

// NewOutbox creates an Outbox with room for size pending messages.
func NewOutbox(size int) *Outbox {
	return &Outbox{ch: make(chan any, size), done: make(chan struct{})}
}

// Run writes queued messages to conn until ctx is cancelled or a write fails.
func (o *Outbox) Run(ctx context.Context, conn *websocket.Conn) error {
	defer close(o.done)
	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case v := <-o.ch:
			if err := WriteTyped(conn, v); err != nil {
				return err
			}
		}
	}
}

// Send queues v, blocking until there is room or the writer has stopped.
// It reports whether v was queued.
func (o *Outbox) Send(v any) bool {
	select {
	case o.ch <- v:
		return true
	case <-o.done:
		return false
	}
}

// TrySend queues v only if there is room. Used for ticks, which are superseded by the next one.
func (o *Outbox) TrySend(v any) bool {
	select {
	case o.ch <- v:
		return true
	default:
		return false
	}
}

// SendError queues a typed ErrorResponse.
func (o *Outbox) SendError(code, msg string) bool {
	return o.Send(ErrorResponse{Event: EventError, Code: code, Error: msg})
}

// Done is closed when the writer stops.
func (o *Outbox) Done() <-chan struct{} { return o.done }
