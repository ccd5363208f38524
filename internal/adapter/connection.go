package adapter

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/villekr/wsgate/internal/event"
	"github.com/villekr/wsgate/internal/logging"
)

// connection is the loop state of one websocket or http connection. It is
// owned by the goroutine running serveConnection.
type connection struct {
	app     *Application
	scope   event.Scope
	receive event.ReceiveFunc
	send    event.SendFunc

	accepted    bool
	subprotocol string

	closing     bool
	closeCode   int
	closeReason string
}

func (a *Application) serveConnection(ctx context.Context, scope event.Scope, receive event.ReceiveFunc, send event.SendFunc) error {
	logging.Debug("Serving connection",
		zap.String("remote_addr", scope.RemoteAddr),
		zap.String("scope", scope.Type.String()),
		zap.String("path", scope.Path),
		zap.Strings("subprotocols", scope.Subprotocols),
	)

	c := &connection{
		app:     a,
		scope:   scope,
		receive: receive,
		send:    send,
	}
	return c.run(ctx)
}

// run receives events in arrival order until a terminal event, a failure or
// cancellation. No receive happens after a terminal event.
func (c *connection) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, err := c.receive(ctx)
		if err != nil {
			return fmt.Errorf("receive %s event: %w", c.scope.Type, err)
		}

		logging.Debug("Event received",
			zap.String("remote_addr", c.scope.RemoteAddr),
			zap.String("event", ev.String()),
		)

		if err := ev.Type.Validate(c.scope.Type, event.Inbound); err != nil {
			return newUnexpectedEvent(c.scope.Type, ev.Type, err.Error())
		}

		done, err := c.handle(ctx, ev)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// handle processes one inbound event and reports whether the loop is over.
func (c *connection) handle(ctx context.Context, ev event.Event) (done bool, err error) {
	switch ev.Type {
	case event.WebSocketConnect:
		return false, c.accept(ctx)

	case event.WebSocketReceive:
		return c.deliver(ctx, ev)

	case event.WebSocketDisconnect:
		logging.Debug("Peer disconnected",
			zap.String("remote_addr", c.scope.RemoteAddr),
			zap.Int("code", ev.Code),
		)
		return true, nil

	case event.HTTPRequest:
		return true, newUnsupportedOperation(c.scope.Type, ev.Type)

	case event.HTTPDisconnect:
		return true, nil

	default:
		return true, newUnexpectedEvent(c.scope.Type, ev.Type, "no handler for event")
	}
}

// accept negotiates the subprotocol and sends websocket.accept. When the
// selector rejects the offer nothing is sent.
func (c *connection) accept(ctx context.Context) error {
	if c.accepted {
		return newUnexpectedEvent(c.scope.Type, event.WebSocketConnect, "connection already accepted")
	}

	chosen, err := c.app.selector.Select(c.scope.Subprotocols)
	if err != nil {
		logging.Warn("Rejecting WebSocket connection",
			zap.String("remote_addr", c.scope.RemoteAddr),
			zap.Strings("offered", c.scope.Subprotocols),
			zap.Error(err),
		)
		return newNoAcceptableSubprotocol(c.scope.Subprotocols, err)
	}

	if err := c.send(ctx, event.Event{Type: event.WebSocketAccept, Subprotocol: chosen}); err != nil {
		return fmt.Errorf("send websocket.accept: %w", err)
	}

	c.accepted = true
	c.subprotocol = chosen
	c.app.metrics.Negotiated(chosen)

	logging.Info("WebSocket connection accepted",
		zap.String("remote_addr", c.scope.RemoteAddr),
		zap.String("subprotocol", chosen),
	)
	return nil
}

// deliver hands a payload to the message handler. A handler failure closes
// the connection with 1011; a requested close ends the loop.
func (c *connection) deliver(ctx context.Context, ev event.Event) (bool, error) {
	if !c.accepted {
		return true, newUnexpectedEvent(c.scope.Type, ev.Type, "connection not accepted")
	}

	session := &Session{conn: c}
	if err := c.app.handler.HandleMessage(ctx, session, messageFromEvent(ev)); err != nil {
		c.sendClose(ctx, websocket.CloseInternalServerErr, "internal error")
		return true, &Error{
			Type:    ErrTypeApplication,
			Phase:   c.scope.Type,
			Event:   ev.Type,
			Message: "message handler failed",
			Err:     err,
		}
	}

	if c.closing {
		c.sendClose(ctx, c.closeCode, c.closeReason)
		return true, nil
	}
	return false, nil
}

func (c *connection) sendClose(ctx context.Context, code int, reason string) {
	if code == 0 {
		code = websocket.CloseNormalClosure
	}
	err := c.send(ctx, event.Event{Type: event.WebSocketClose, Code: code, Reason: reason})
	if err != nil {
		logging.Warn("Failed to send websocket.close",
			zap.String("remote_addr", c.scope.RemoteAddr),
			zap.Error(err),
		)
	}
}
