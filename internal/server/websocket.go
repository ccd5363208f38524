package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/villekr/wsgate/internal/adapter"
	"github.com/villekr/wsgate/internal/event"
	"github.com/villekr/wsgate/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer when the config sets none
	defaultReadLimit = 1 << 20
)

var (
	errNotAccepted     = errors.New("websocket not accepted")
	errAlreadyAccepted = errors.New("websocket already accepted")
	errConnectionEnded = errors.New("websocket connection ended")
	errNotOffered      = errors.New("subprotocol not offered by client")
)

// wsBridge turns one upgrade request into the websocket event stream. Before
// accept it still owns the HTTP response; after accept it owns the
// *websocket.Conn.
type wsBridge struct {
	w          http.ResponseWriter
	r          *http.Request
	remoteAddr string
	readLimit  int64

	connected    bool
	disconnected bool
	rejected     bool

	// mu serializes writes and guards conn and closed
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	stop   func() bool
}

func newWSBridge(w http.ResponseWriter, r *http.Request, readLimit int64) *wsBridge {
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	return &wsBridge{
		w:          w,
		r:          r,
		remoteAddr: r.RemoteAddr,
		readLimit:  readLimit,
	}
}

func (b *wsBridge) scope() event.Scope {
	return event.Scope{
		Type:         event.PhaseWebSocket,
		Subprotocols: websocket.Subprotocols(b.r),
		Path:         b.r.URL.Path,
		RemoteAddr:   b.remoteAddr,
		Headers:      flattenHeaders(b.r.Header),
	}
}

// receive yields connect first, then one receive per message, then a
// single disconnect.
func (b *wsBridge) receive(ctx context.Context) (event.Event, error) {
	if !b.connected {
		b.connected = true
		return event.Event{Type: event.WebSocketConnect}, nil
	}
	if b.disconnected {
		return event.Event{}, errConnectionEnded
	}

	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return event.Event{}, errNotAccepted
	}

	messageType, data, err := conn.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return event.Event{}, ctxErr
		}
		b.disconnected = true
		code := websocket.CloseAbnormalClosure
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			code = closeErr.Code
		}
		logging.Debug("WebSocket read ended",
			zap.String("remote_addr", b.remoteAddr),
			zap.Int("code", code),
			zap.Error(err),
		)
		return event.Event{Type: event.WebSocketDisconnect, Code: code}, nil
	}

	logging.LogWebSocketMessage(b.remoteAddr, "received", messageType, data)

	if messageType == websocket.TextMessage {
		return event.Event{Type: event.WebSocketReceive, Text: string(data)}, nil
	}
	if data == nil {
		data = []byte{}
	}
	return event.Event{Type: event.WebSocketReceive, Body: data}, nil
}

func (b *wsBridge) send(ctx context.Context, ev event.Event) error {
	switch ev.Type {
	case event.WebSocketAccept:
		return b.accept(ctx, ev.Subprotocol)
	case event.WebSocketSend:
		return b.write(ev)
	case event.WebSocketClose:
		return b.close(ev.Code, ev.Reason)
	default:
		return fmt.Errorf("cannot send %s on a websocket connection", ev.Type)
	}
}

// accept performs the upgrade advertising exactly the chosen subprotocol.
func (b *wsBridge) accept(ctx context.Context, subprotocol string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return errAlreadyAccepted
	}
	if b.rejected {
		return errConnectionEnded
	}

	upgrader := websocket.Upgrader{
		HandshakeTimeout: writeWait,
		// Charge points are not browsers and send no meaningful Origin
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	if subprotocol != "" {
		// Upgrader silently drops a protocol the client did not offer
		if !slices.Contains(websocket.Subprotocols(b.r), subprotocol) {
			b.rejected = true
			http.Error(b.w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return fmt.Errorf("accept %q: %w", subprotocol, errNotOffered)
		}
		upgrader.Subprotocols = []string{subprotocol}
	}

	conn, err := upgrader.Upgrade(b.w, b.r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response
		b.rejected = true
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	conn.SetReadLimit(b.readLimit)

	b.conn = conn
	b.stop = context.AfterFunc(ctx, func() { _ = conn.Close() })

	logging.LogConnection(b.remoteAddr, "upgraded", zap.String("subprotocol", conn.Subprotocol()))
	return nil
}

func (b *wsBridge) write(ev event.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return errNotAccepted
	}
	if b.closed {
		return errConnectionEnded
	}

	messageType, data := websocket.TextMessage, []byte(ev.Text)
	if ev.Body != nil {
		messageType, data = websocket.BinaryMessage, ev.Body
	}

	if err := b.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := b.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	logging.LogWebSocketMessage(b.remoteAddr, "sent", messageType, data)
	return nil
}

// close sends a close frame and closes the connection. Before accept it
// rejects the handshake instead.
func (b *wsBridge) close(code int, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		if !b.rejected {
			b.rejected = true
			http.Error(b.w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		}
		return nil
	}
	return b.closeLocked(code, reason)
}

func (b *wsBridge) closeLocked(code int, reason string) error {
	if b.closed {
		return nil
	}
	b.closed = true

	if code == 0 {
		code = websocket.CloseNormalClosure
	}
	msg := websocket.FormatCloseMessage(code, reason)
	err := b.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = b.conn.Close()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("write close frame: %w", err)
	}
	return nil
}

// finish releases the connection once the adapter returned. A connection
// that was never accepted gets an HTTP error status instead.
func (b *wsBridge) finish(serveErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stop != nil {
		b.stop()
	}

	if b.conn == nil {
		if b.rejected {
			return
		}
		b.rejected = true
		status := http.StatusInternalServerError
		if serveErr == nil || adapter.IsNoAcceptableSubprotocol(serveErr) {
			status = http.StatusForbidden
		}
		http.Error(b.w, http.StatusText(status), status)
		return
	}

	code := websocket.CloseNormalClosure
	if serveErr != nil {
		code = websocket.CloseInternalServerErr
	}
	if err := b.closeLocked(code, ""); err != nil {
		logging.Debug("Close after serve failed",
			zap.String("remote_addr", b.remoteAddr),
			zap.Error(err),
		)
	}
}

// shutdown closes the underlying connection from another goroutine.
func (b *wsBridge) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		_ = b.closeLocked(websocket.CloseGoingAway, "server shutting down")
	}
}
