package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/villekr/wsgate/internal/event"
	"github.com/villekr/wsgate/internal/logging"
)

// httpBridge turns one plain HTTP request into the http event stream:
// request with the full body, then disconnect.
type httpBridge struct {
	w         http.ResponseWriter
	r         *http.Request
	readLimit int64

	requested bool
	started   bool
}

func newHTTPBridge(w http.ResponseWriter, r *http.Request, readLimit int64) *httpBridge {
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	return &httpBridge{w: w, r: r, readLimit: readLimit}
}

func (b *httpBridge) scope() event.Scope {
	return event.Scope{
		Type:       event.PhaseHTTP,
		Path:       b.r.URL.Path,
		RemoteAddr: b.r.RemoteAddr,
		Headers:    flattenHeaders(b.r.Header),
	}
}

func (b *httpBridge) receive(ctx context.Context) (event.Event, error) {
	if b.requested {
		return event.Event{Type: event.HTTPDisconnect}, nil
	}
	b.requested = true

	body, err := io.ReadAll(http.MaxBytesReader(b.w, b.r.Body, b.readLimit))
	if err != nil {
		return event.Event{}, fmt.Errorf("read request body: %w", err)
	}
	return event.Event{Type: event.HTTPRequest, Body: body}, nil
}

func (b *httpBridge) send(ctx context.Context, ev event.Event) error {
	switch ev.Type {
	case event.HTTPResponseStart:
		if b.started {
			return errors.New("response already started")
		}
		b.started = true
		for k, v := range ev.Headers {
			b.w.Header().Set(k, v)
		}
		status := ev.Status
		if status == 0 {
			status = http.StatusOK
		}
		b.w.WriteHeader(status)
		return nil

	case event.HTTPResponseBody:
		if !b.started {
			return errors.New("response body before response start")
		}
		if _, err := b.w.Write(ev.Body); err != nil {
			return err
		}
		if ev.MoreBody {
			if f, ok := b.w.(http.Flusher); ok {
				f.Flush()
			}
		}
		return nil

	default:
		return fmt.Errorf("cannot send %s on an http connection", ev.Type)
	}
}

// finish aborts the response when the adapter failed, so the peer sees the
// connection terminated rather than an empty 200.
func (b *httpBridge) finish(serveErr error) {
	if serveErr == nil {
		return
	}
	logging.Warn("Aborting HTTP request",
		zap.String("remote_addr", b.r.RemoteAddr),
		zap.String("method", b.r.Method),
		zap.String("path", b.r.URL.Path),
		zap.Error(serveErr),
	)
	panic(http.ErrAbortHandler)
}

// flattenHeaders joins repeated header values with ", "
func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for key, values := range h {
		headers[key] = strings.Join(values, ", ")
	}
	return headers
}
