package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/villekr/wsgate/internal/event"
)

// ErrorType represents the category of a connection failure.
type ErrorType int

const (
	// ErrTypeUnsupportedScope indicates a scope phase outside lifespan/websocket/http
	ErrTypeUnsupportedScope ErrorType = iota
	// ErrTypeUnsupportedOperation indicates an http.request reached the adapter
	ErrTypeUnsupportedOperation
	// ErrTypeNoAcceptableSubprotocol indicates the peer offered no supported subprotocol
	ErrTypeNoAcceptableSubprotocol
	// ErrTypeUnexpectedEvent indicates an event outside the scope's vocabulary or out of order
	ErrTypeUnexpectedEvent
	// ErrTypeApplication indicates the message handler failed
	ErrTypeApplication
)

// String returns the name used in logs and metrics.
func (et ErrorType) String() string {
	switch et {
	case ErrTypeUnsupportedScope:
		return "UnsupportedScope"
	case ErrTypeUnsupportedOperation:
		return "UnsupportedOperation"
	case ErrTypeNoAcceptableSubprotocol:
		return "NoAcceptableSubprotocol"
	case ErrTypeUnexpectedEvent:
		return "UnexpectedEvent"
	case ErrTypeApplication:
		return "Application"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is a failure that terminates one connection.
type Error struct {
	Type    ErrorType   // Category of error
	Phase   event.Phase // Scope phase of the failing connection
	Event   event.Type  // Event being handled, if any
	Message string      // Human-readable detail
	Err     error       // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Type.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Type, so the sentinels below work with
// errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedScope        = &Error{Type: ErrTypeUnsupportedScope}
	ErrUnsupportedOperation    = &Error{Type: ErrTypeUnsupportedOperation}
	ErrNoAcceptableSubprotocol = &Error{Type: ErrTypeNoAcceptableSubprotocol}
	ErrUnexpectedEvent         = &Error{Type: ErrTypeUnexpectedEvent}
	ErrApplication             = &Error{Type: ErrTypeApplication}
)

func newUnsupportedScope(phase event.Phase) *Error {
	return &Error{
		Type:    ErrTypeUnsupportedScope,
		Phase:   phase,
		Message: fmt.Sprintf("unsupported scope type %s", phase),
	}
}

func newUnsupportedOperation(phase event.Phase, typ event.Type) *Error {
	return &Error{
		Type:    ErrTypeUnsupportedOperation,
		Phase:   phase,
		Event:   typ,
		Message: "plain HTTP requests are not served",
	}
}

func newNoAcceptableSubprotocol(offered []string, err error) *Error {
	return &Error{
		Type:    ErrTypeNoAcceptableSubprotocol,
		Phase:   event.PhaseWebSocket,
		Event:   event.WebSocketConnect,
		Message: fmt.Sprintf("peer offered %v", offered),
		Err:     err,
	}
}

func newUnexpectedEvent(phase event.Phase, typ event.Type, reason string) *Error {
	return &Error{
		Type:    ErrTypeUnexpectedEvent,
		Phase:   phase,
		Event:   typ,
		Message: fmt.Sprintf("%s in %s scope: %s", typ, phase, reason),
	}
}

// IsUnsupportedScope checks if an error is an UnsupportedScope failure
func IsUnsupportedScope(err error) bool {
	return errors.Is(err, ErrUnsupportedScope)
}

// IsUnsupportedOperation checks if an error is an UnsupportedOperation failure
func IsUnsupportedOperation(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}

// IsNoAcceptableSubprotocol checks if an error is a NoAcceptableSubprotocol failure
func IsNoAcceptableSubprotocol(err error) bool {
	return errors.Is(err, ErrNoAcceptableSubprotocol)
}

// Outcome classifies the result of Serve for logs and metrics: "ok",
// "canceled", an ErrorType name, or "transport".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var adapterErr *Error
	if errors.As(err, &adapterErr) {
		return adapterErr.Type.String()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "transport"
}
