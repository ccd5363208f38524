package adapter

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/villekr/wsgate/internal/event"
	"github.com/villekr/wsgate/internal/logging"
)

// serveLifespan performs exactly one receive and, for startup/shutdown,
// exactly one acknowledging send. Hook failures become *.failed events and
// are not returned.
func (a *Application) serveLifespan(ctx context.Context, receive event.ReceiveFunc, send event.SendFunc) error {
	ev, err := receive(ctx)
	if err != nil {
		return fmt.Errorf("receive lifespan event: %w", err)
	}

	switch ev.Type {
	case event.LifespanStartup:
		a.acknowledge(ctx, send, ev.Type, a.runStartup(ctx), event.LifespanStartupComplete, event.LifespanStartupFailed)
	case event.LifespanShutdown:
		a.acknowledge(ctx, send, ev.Type, a.runShutdown(ctx), event.LifespanShutdownComplete, event.LifespanShutdownFailed)
	default:
		logging.Warn("Ignoring unexpected lifespan event",
			zap.String("event", ev.Type.String()),
		)
	}
	return nil
}

// runStartup stops at the first failing hook and rolls back the hooks that
// already succeeded, latest first.
func (a *Application) runStartup(ctx context.Context) error {
	for i, hook := range a.startup {
		if err := hook.run(ctx); err != nil {
			err = fmt.Errorf("startup hook %d: %w", i+1, err)
			return errors.Join(err, a.rollback(ctx, a.startup[:i]))
		}
	}
	return nil
}

func (a *Application) rollback(ctx context.Context, done []startupHook) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		if done[i].rollback == nil {
			continue
		}
		if err := done[i].rollback(ctx); err != nil {
			errs = append(errs, fmt.Errorf("rollback of startup hook %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

func (a *Application) runShutdown(ctx context.Context) error {
	var errs []error
	for i, hook := range a.shutdown {
		if err := hook(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown hook %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

// acknowledge sends complete when workErr is nil and failed otherwise. A
// failing send is logged; the handshake answer is best-effort.
func (a *Application) acknowledge(ctx context.Context, send event.SendFunc, received event.Type, workErr error, complete, failed event.Type) {
	ack := event.Event{Type: complete}
	outcome := "complete"
	if workErr != nil {
		ack = event.Event{Type: failed, Message: workErr.Error()}
		outcome = "failed"
	}

	logging.LogLifespan(received.String(), ack.Type.String(), workErr)
	a.metrics.Lifespan(received.String(), outcome)

	if err := send(ctx, ack); err != nil {
		logging.Error("Failed to send lifespan acknowledgement",
			zap.String("event", received.String()),
			zap.String("ack", ack.Type.String()),
			zap.Error(err),
		)
	}
}
