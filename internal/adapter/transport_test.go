package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/villekr/wsgate/internal/event"
	"github.com/villekr/wsgate/internal/subprotocol"
)

var errScriptExhausted = errors.New("script exhausted")

// scriptedTransport replays a fixed list of inbound events and records every
// outbound event.
type scriptedTransport struct {
	inbound  []event.Event
	received int
	sent     []event.Event
	sendErr  error
}

func newTransport(events ...event.Event) *scriptedTransport {
	return &scriptedTransport{inbound: events}
}

func (s *scriptedTransport) receive(ctx context.Context) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s.received >= len(s.inbound) {
		return event.Event{}, errScriptExhausted
	}
	ev := s.inbound[s.received]
	s.received++
	return ev, nil
}

func (s *scriptedTransport) send(ctx context.Context, ev event.Event) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, ev)
	return nil
}

func (s *scriptedTransport) sentTypes() []event.Type {
	types := make([]event.Type, len(s.sent))
	for i, ev := range s.sent {
		types[i] = ev.Type
	}
	return types
}

func newTestApp(t *testing.T, opts ...Option) *Application {
	t.Helper()
	opts = append([]Option{WithSelector(subprotocol.Required(subprotocol.OCPP201))}, opts...)
	app, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return app
}

func wsScope(offered ...string) event.Scope {
	return event.Scope{
		Type:         event.PhaseWebSocket,
		Subprotocols: offered,
		Path:         "/",
		RemoteAddr:   "192.168.1.50:51000",
	}
}

func connect() event.Event {
	return event.Event{Type: event.WebSocketConnect}
}

func disconnect() event.Event {
	return event.Event{Type: event.WebSocketDisconnect, Code: 1000}
}
