package adapter

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/villekr/wsgate/internal/event"
	"github.com/villekr/wsgate/internal/logging"
	"github.com/villekr/wsgate/internal/metrics"
	"github.com/villekr/wsgate/internal/subprotocol"
)

const defaultTracerName = "wsgate"

// Hook is application-defined startup or shutdown work.
type Hook func(ctx context.Context) error

// startupHook is a startup hook with an optional undo, run when a later
// startup hook fails.
type startupHook struct {
	run      Hook
	rollback Hook
}

// Application routes transport events to the lifecycle and connection
// handlers. Build one with New.
type Application struct {
	selector subprotocol.Selector
	handler  MessageHandler
	startup  []startupHook
	shutdown []Hook
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// Option configures an Application.
type Option func(*Application)

// WithSelector sets the subprotocol selector used on websocket.connect.
func WithSelector(selector subprotocol.Selector) Option {
	return func(a *Application) {
		a.selector = selector
	}
}

// WithMessageHandler sets the handler for websocket.receive payloads.
func WithMessageHandler(handler MessageHandler) Option {
	return func(a *Application) {
		a.handler = handler
	}
}

// WithStartup appends a hook run on lifespan.startup. Hooks run in order and
// the first failure stops the chain.
func WithStartup(hook Hook) Option {
	return func(a *Application) {
		a.startup = append(a.startup, startupHook{run: hook})
	}
}

// WithLifecycle pairs a startup hook with the shutdown hook that releases
// what it acquired. The stop hook runs on lifespan.shutdown and also, in
// reverse order, when a later startup hook fails.
func WithLifecycle(start, stop Hook) Option {
	return func(a *Application) {
		a.startup = append(a.startup, startupHook{run: start, rollback: stop})
		a.shutdown = append(a.shutdown, stop)
	}
}

// WithShutdown appends a hook run on lifespan.shutdown. Every hook runs; the
// failures are joined.
func WithShutdown(hook Hook) Option {
	return func(a *Application) {
		a.shutdown = append(a.shutdown, hook)
	}
}

// WithMetrics records connection and event metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Application) {
		a.metrics = m
	}
}

// WithTracer overrides the tracer (default: otel.Tracer("wsgate")).
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Application) {
		a.tracer = tracer
	}
}

// New creates an Application. A selector is required.
func New(opts ...Option) (*Application, error) {
	a := &Application{}
	for _, opt := range opts {
		opt(a)
	}
	if a.selector == nil {
		return nil, errors.New("adapter: a subprotocol selector is required")
	}
	if a.handler == nil {
		a.handler = LogHandler()
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer(defaultTracerName)
	}
	return a, nil
}

// Serve handles one logical connection. It inspects scope.Type once and
// hands receive/send to the matching handler; unsupported phases fail with
// ErrUnsupportedScope before any event is read or written.
func (a *Application) Serve(ctx context.Context, scope event.Scope, receive event.ReceiveFunc, send event.SendFunc) error {
	switch scope.Type {
	case event.PhaseLifespan:
		return a.traced(ctx, scope, func(ctx context.Context) error {
			return a.serveLifespan(ctx, a.countReceive(scope.Type, receive), a.countSend(scope.Type, send))
		})

	case event.PhaseWebSocket, event.PhaseHTTP:
		a.metrics.ConnectionOpened(string(scope.Type))
		start := time.Now()
		err := a.traced(ctx, scope, func(ctx context.Context) error {
			return a.serveConnection(ctx, scope, a.countReceive(scope.Type, receive), a.countSend(scope.Type, send))
		})
		a.metrics.ConnectionClosed(string(scope.Type), Outcome(err), time.Since(start))
		if err != nil {
			a.metrics.Error(Outcome(err))
		}
		return err

	default:
		err := newUnsupportedScope(scope.Type)
		logging.Warn("Rejecting connection with unsupported scope",
			zap.String("remote_addr", scope.RemoteAddr),
			zap.String("scope", scope.Type.String()),
		)
		a.metrics.Error(err.Type.String())
		return err
	}
}

// traced runs fn inside a span named after the scope phase.
func (a *Application) traced(ctx context.Context, scope event.Scope, fn func(ctx context.Context) error) error {
	ctx, span := a.tracer.Start(ctx, "wsgate."+string(scope.Type),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("wsgate.phase", string(scope.Type)),
			attribute.String("wsgate.path", scope.Path),
			attribute.String("net.peer.addr", scope.RemoteAddr),
			attribute.StringSlice("wsgate.subprotocols.offered", scope.Subprotocols),
		),
	)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Outcome(err))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

func (a *Application) countReceive(phase event.Phase, receive event.ReceiveFunc) event.ReceiveFunc {
	if a.metrics == nil {
		return receive
	}
	return func(ctx context.Context) (event.Event, error) {
		ev, err := receive(ctx)
		if err == nil {
			a.metrics.Event(string(phase), string(ev.Type), event.Inbound.String())
		}
		return ev, err
	}
}

func (a *Application) countSend(phase event.Phase, send event.SendFunc) event.SendFunc {
	if a.metrics == nil {
		return send
	}
	return func(ctx context.Context, ev event.Event) error {
		err := send(ctx, ev)
		if err == nil {
			a.metrics.Event(string(phase), string(ev.Type), event.Outbound.String())
		}
		return err
	}
}
