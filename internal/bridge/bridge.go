package bridge

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/s-hiraoku/termsession/internal/logging"
	"github.com/s-hiraoku/termsession/internal/monitoring"
	"github.com/s-hiraoku/termsession/internal/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// ErrNotConnected is returned by Post when no terminal surface is attached.
var ErrNotConnected = errors.New("bridge: no surface connected")

const writeTimeout = 5 * time.Second

// EventSink receives the inbound events a connected surface produces.
// The session coordinator implements it.
type EventSink interface {
	HandleScrollbackPushed(terminalID string, payload types.ScrollbackPayload)
	HandleScrollbackCollected(terminalID, requestID string, payload types.ScrollbackPayload)
	HandleTerminalReady(terminalID string)
	HandleRefreshRequest(ctx context.Context, terminalIDs []string)
}

// Bridge owns the WebSocket connection to the terminal surface. One
// surface at a time: a new connection replaces the previous one. Writes
// are serialized, the read loop demultiplexes events into the sink.
type Bridge struct {
	log     *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	sink    EventSink
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// New creates a bridge that forwards inbound surface events to sink.
// A nil sink may be attached later with SetSink, before the first
// connection.
func New(sink EventSink, log *logging.Logger, metrics *monitoring.Metrics) *Bridge {
	if log == nil {
		log = logging.NewNop()
	}
	return &Bridge{
		sink:    sink,
		log:     log.WithComponent("bridge"),
		metrics: metrics,
	}
}

// SetSink attaches the event sink. Used when the sink itself posts
// through this bridge and is constructed after it.
func (b *Bridge) SetSink(sink EventSink) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

// HandleConnection upgrades the request and runs the read loop until the
// surface disconnects. A newer connection evicts the current one.
func (b *Bridge) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	b.attach(conn)
	b.metrics.BridgeConnected(1)
	defer func() {
		b.detach(conn)
		b.metrics.BridgeConnected(-1)
		conn.Close()
	}()

	b.log.Info("terminal surface connected", zap.String("remote", conn.RemoteAddr().String()))

	reqCtx := c.Request.Context()
	for {
		var event types.InboundEvent
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.log.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		b.metrics.RecordBridgeMessage("in", event.Type)
		b.dispatch(reqCtx, event)
	}
}

func (b *Bridge) dispatch(ctx context.Context, event types.InboundEvent) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink == nil {
		b.log.Debug("surface event dropped, no sink attached", zap.String("type", event.Type))
		return
	}
	switch event.Type {
	case types.EventScrollbackPushed:
		sink.HandleScrollbackPushed(event.TerminalID, event.Scrollback)
	case types.EventScrollbackCollected:
		sink.HandleScrollbackCollected(event.TerminalID, event.RequestID, event.Scrollback)
	case types.EventTerminalReady:
		sink.HandleTerminalReady(event.TerminalID)
	case types.EventRefreshRequested:
		sink.HandleRefreshRequest(ctx, event.TerminalIDs)
	default:
		b.log.Debug("unknown surface event", zap.String("type", event.Type))
	}
}

// Post sends one message to the connected surface. It fails fast when no
// surface is attached so callers can fall back to cached data.
func (b *Bridge) Post(ctx context.Context, msg types.OutboundMessage) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := conn.WriteJSON(msg); err != nil {
		return err
	}
	b.metrics.RecordBridgeMessage("out", msg.Command)
	return nil
}

// Connected reports whether a surface is currently attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *Bridge) attach(conn *websocket.Conn) {
	b.mu.Lock()
	prev := b.conn
	b.conn = conn
	b.mu.Unlock()
	if prev != nil {
		// Closing unblocks the old read loop; its deferred detach is a
		// no-op because the slot already points at the new connection.
		prev.Close()
		b.log.Info("replaced previous surface connection")
	}
}

func (b *Bridge) detach(conn *websocket.Conn) {
	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	b.mu.Unlock()
}
