package event

import "fmt"

// Type identifies an event within its phase vocabulary.
type Type string

// Lifespan events
const (
	LifespanStartup          Type = "lifespan.startup"
	LifespanShutdown         Type = "lifespan.shutdown"
	LifespanStartupComplete  Type = "lifespan.startup.complete"
	LifespanStartupFailed    Type = "lifespan.startup.failed"
	LifespanShutdownComplete Type = "lifespan.shutdown.complete"
	LifespanShutdownFailed   Type = "lifespan.shutdown.failed"
)

// WebSocket events
const (
	WebSocketConnect    Type = "websocket.connect"
	WebSocketReceive    Type = "websocket.receive"
	WebSocketDisconnect Type = "websocket.disconnect"
	WebSocketAccept     Type = "websocket.accept"
	WebSocketSend       Type = "websocket.send"
	WebSocketClose      Type = "websocket.close"
)

// HTTP events
const (
	HTTPRequest       Type = "http.request"
	HTTPDisconnect    Type = "http.disconnect"
	HTTPResponseStart Type = "http.response.start"
	HTTPResponseBody  Type = "http.response.body"
)

// Direction tells which side produces an event.
type Direction int

const (
	// DirectionUnknown is returned for types outside the vocabulary.
	DirectionUnknown Direction = iota
	// Inbound events are produced by the transport and received by the adapter.
	Inbound
	// Outbound events are sent by the adapter to the transport.
	Outbound
)

func (d Direction) String() string {
	switch d {
	case Inbound:
		return "inbound"
	case Outbound:
		return "outbound"
	default:
		return "unknown"
	}
}

type typeInfo struct {
	phase     Phase
	direction Direction
}

var vocabulary = map[Type]typeInfo{
	LifespanStartup:          {PhaseLifespan, Inbound},
	LifespanShutdown:         {PhaseLifespan, Inbound},
	LifespanStartupComplete:  {PhaseLifespan, Outbound},
	LifespanStartupFailed:    {PhaseLifespan, Outbound},
	LifespanShutdownComplete: {PhaseLifespan, Outbound},
	LifespanShutdownFailed:   {PhaseLifespan, Outbound},

	WebSocketConnect:    {PhaseWebSocket, Inbound},
	WebSocketReceive:    {PhaseWebSocket, Inbound},
	WebSocketDisconnect: {PhaseWebSocket, Inbound},
	WebSocketAccept:     {PhaseWebSocket, Outbound},
	WebSocketSend:       {PhaseWebSocket, Outbound},
	WebSocketClose:      {PhaseWebSocket, Outbound},

	HTTPRequest:       {PhaseHTTP, Inbound},
	HTTPDisconnect:    {PhaseHTTP, Inbound},
	HTTPResponseStart: {PhaseHTTP, Outbound},
	HTTPResponseBody:  {PhaseHTTP, Outbound},
}

// Known reports whether t is part of the vocabulary.
func (t Type) Known() bool {
	_, ok := vocabulary[t]
	return ok
}

// Phase returns the phase t belongs to, or "" for unknown types.
func (t Type) Phase() Phase {
	return vocabulary[t].phase
}

// Direction returns who produces events of type t.
func (t Type) Direction() Direction {
	return vocabulary[t].direction
}

// Terminal reports whether t ends a connection's event stream.
func (t Type) Terminal() bool {
	switch t {
	case WebSocketDisconnect, WebSocketClose, HTTPDisconnect:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	if t == "" {
		return "<empty>"
	}
	return string(t)
}

// Validate checks that t is known, belongs to phase p and flows in direction d.
func (t Type) Validate(p Phase, d Direction) error {
	info, ok := vocabulary[t]
	if !ok {
		return fmt.Errorf("unknown event type %s", t)
	}
	if info.phase != p {
		return fmt.Errorf("event type %s belongs to phase %s, not %s", t, info.phase, p)
	}
	if info.direction != d {
		return fmt.Errorf("event type %s is %s, not %s", t, info.direction, d)
	}
	return nil
}
