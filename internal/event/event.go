package event

import (
	"context"
	"fmt"
)

// Event is one discrete message exchanged between transport and adapter.
// Only the fields relevant to Type are set.
type Event struct {
	Type Type `json:"type"`

	// websocket.receive / websocket.send payload. Text is used for text
	// frames, Body for binary frames.
	Body []byte `json:"body,omitempty"`
	Text string `json:"text,omitempty"`

	// websocket.accept
	Subprotocol string `json:"subprotocol,omitempty"`

	// websocket.close / websocket.disconnect
	Code   int    `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`

	// http.response.start
	Status  int               `json:"status,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	// http.request / http.response.body
	MoreBody bool `json:"more_body,omitempty"`

	// lifespan.*.failed
	Message string `json:"message,omitempty"`
}

func (e Event) String() string {
	switch e.Type {
	case WebSocketAccept:
		return fmt.Sprintf("%s(subprotocol=%q)", e.Type, e.Subprotocol)
	case WebSocketReceive, WebSocketSend:
		if e.Text != "" {
			return fmt.Sprintf("%s(text, %d bytes)", e.Type, len(e.Text))
		}
		return fmt.Sprintf("%s(binary, %d bytes)", e.Type, len(e.Body))
	case WebSocketClose, WebSocketDisconnect:
		return fmt.Sprintf("%s(code=%d)", e.Type, e.Code)
	case LifespanStartupFailed, LifespanShutdownFailed:
		return fmt.Sprintf("%s(%s)", e.Type, e.Message)
	default:
		return e.Type.String()
	}
}

// Scope is the read-only context of one connection. It is owned by the
// transport; the adapter never modifies it.
type Scope struct {
	Type Phase `json:"type"`

	// Subprotocols offered by the peer, in the order it listed them.
	Subprotocols []string `json:"subprotocols,omitempty"`

	Path       string            `json:"path,omitempty"`
	RemoteAddr string            `json:"remote_addr,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// ReceiveFunc returns the next inbound event. It blocks until one is
// available or ctx is done.
type ReceiveFunc func(ctx context.Context) (Event, error)

// SendFunc hands one outbound event to the transport. It blocks until the
// transport accepted it or ctx is done.
type SendFunc func(ctx context.Context, ev Event) error
