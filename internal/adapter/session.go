package adapter

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"

	"github.com/villekr/wsgate/internal/event"
	"github.com/villekr/wsgate/internal/logging"
)

// Message is one WebSocket payload. Exactly one of Text or Body is used;
// IsText tells which.
type Message struct {
	Text   string
	Body   []byte
	IsText bool
}

// TextMessage builds a text payload.
func TextMessage(text string) Message {
	return Message{Text: text, IsText: true}
}

// BinaryMessage builds a binary payload.
func BinaryMessage(body []byte) Message {
	return Message{Body: body}
}

// Bytes returns the payload regardless of its frame type.
func (m Message) Bytes() []byte {
	if m.IsText {
		return []byte(m.Text)
	}
	return m.Body
}

// FrameType returns the gorilla/websocket message type for m.
func (m Message) FrameType() int {
	if m.IsText {
		return websocket.TextMessage
	}
	return websocket.BinaryMessage
}

func messageFromEvent(ev event.Event) Message {
	if ev.Body == nil {
		return TextMessage(ev.Text)
	}
	return BinaryMessage(ev.Body)
}

func (m Message) event() event.Event {
	if m.IsText {
		return event.Event{Type: event.WebSocketSend, Text: m.Text}
	}
	return event.Event{Type: event.WebSocketSend, Body: m.Body}
}

// Session is the application's view of an accepted WebSocket connection
// while it handles one message.
type Session struct {
	conn *connection
}

// Subprotocol returns the negotiated subprotocol.
func (s *Session) Subprotocol() string {
	return s.conn.subprotocol
}

// RemoteAddr returns the peer address reported by the transport.
func (s *Session) RemoteAddr() string {
	return s.conn.scope.RemoteAddr
}

// Path returns the request path of the connection.
func (s *Session) Path() string {
	return s.conn.scope.Path
}

// Send queues a websocket.send event to the peer.
func (s *Session) Send(ctx context.Context, msg Message) error {
	if s.conn.closing {
		return errors.New("send after close requested")
	}
	return s.conn.send(ctx, msg.event())
}

// Close asks the connection handler to send websocket.close with code and
// reason once the current message has been handled, ending the loop.
func (s *Session) Close(code int, reason string) {
	s.conn.closing = true
	s.conn.closeCode = code
	s.conn.closeReason = reason
}

// MessageHandler is the application logic receiving WebSocket payloads.
type MessageHandler interface {
	HandleMessage(ctx context.Context, s *Session, msg Message) error
}

// MessageHandlerFunc adapts a function to the MessageHandler interface.
type MessageHandlerFunc func(ctx context.Context, s *Session, msg Message) error

// HandleMessage calls f(ctx, s, msg).
func (f MessageHandlerFunc) HandleMessage(ctx context.Context, s *Session, msg Message) error {
	return f(ctx, s, msg)
}

// LogHandler returns a MessageHandler that only logs received payloads.
func LogHandler() MessageHandler {
	return MessageHandlerFunc(func(ctx context.Context, s *Session, msg Message) error {
		logging.LogWebSocketMessage(s.RemoteAddr(), "received", msg.FrameType(), msg.Bytes())
		return nil
	})
}
