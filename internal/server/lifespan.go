package server

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/villekr/wsgate/internal/event"
	"github.com/villekr/wsgate/internal/logging"
)

var errAckAlreadySent = errors.New("lifespan acknowledgement already sent")

// lifespan runs one lifespan scope delivering typ and returns the
// application's acknowledgement. An application that sends none is treated
// as having nothing to do.
func (s *Server) lifespan(ctx context.Context, typ event.Type) (event.Event, error) {
	in := make(chan event.Event, 1)
	out := make(chan event.Event, 1)
	in <- event.Event{Type: typ}

	receive := func(ctx context.Context) (event.Event, error) {
		select {
		case ev := <-in:
			return ev, nil
		case <-ctx.Done():
			return event.Event{}, ctx.Err()
		}
	}
	send := func(ctx context.Context, ev event.Event) error {
		select {
		case out <- ev:
			return nil
		default:
			return errAckAlreadySent
		}
	}

	if err := s.app.Serve(ctx, event.Scope{Type: event.PhaseLifespan}, receive, send); err != nil {
		return event.Event{}, err
	}

	select {
	case ack := <-out:
		return ack, nil
	default:
		logging.Warn("Application sent no lifespan acknowledgement",
			zap.String("event", typ.String()),
		)
		complete := event.LifespanStartupComplete
		if typ == event.LifespanShutdown {
			complete = event.LifespanShutdownComplete
		}
		return event.Event{Type: complete}, nil
	}
}
