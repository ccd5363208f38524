package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/villekr/wsgate/internal/adapter"
	"github.com/villekr/wsgate/internal/server"
	"github.com/villekr/wsgate/internal/subprotocol"
	"github.com/villekr/wsgate/internal/ui"
)

type stepRecorder struct {
	mu     sync.Mutex
	status map[int]ui.StepStatus
	notes  map[int]string
}

func newStepRecorder() *stepRecorder {
	return &stepRecorder{status: make(map[int]ui.StepStatus), notes: make(map[int]string)}
}

func (r *stepRecorder) onStep(step int, _ string, status ui.StepStatus, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[step] = status
	r.notes[step] = message
}

func (r *stepRecorder) want(t *testing.T, want ...ui.StepStatus) {
	t.Helper()
	for i, w := range want {
		if got := r.status[i+1]; got != w {
			t.Errorf("step %d status = %v, want %v", i+1, got, w)
		}
	}
}

func newGateway(t *testing.T) string {
	t.Helper()
	echo := adapter.MessageHandlerFunc(func(ctx context.Context, s *adapter.Session, msg adapter.Message) error {
		return s.Send(ctx, msg)
	})
	app, err := adapter.New(
		adapter.WithSelector(subprotocol.Required(subprotocol.OCPP201)),
		adapter.WithMessageHandler(echo),
	)
	if err != nil {
		t.Fatalf("adapter.New() error = %v", err)
	}
	srv, err := server.New(&server.Config{}, app)
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ocpp/CP001"
}

func TestRunNegotiatesAndEchoes(t *testing.T) {
	url := newGateway(t)
	rec := newStepRecorder()

	result, err := Run(context.Background(), Options{
		URL:          url,
		Subprotocols: []string{subprotocol.OCPP16, subprotocol.OCPP201},
		Message:      `[2,"1","Heartbeat",{}]`,
		Timeout:      5 * time.Second,
	}, rec.onStep)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Subprotocol != subprotocol.OCPP201 {
		t.Errorf("Subprotocol = %q, want %q", result.Subprotocol, subprotocol.OCPP201)
	}
	if result.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("StatusCode = %d, want 101", result.StatusCode)
	}
	if result.Reply != `[2,"1","Heartbeat",{}]` {
		t.Errorf("Reply = %q", result.Reply)
	}
	if result.CloseCode != websocket.CloseNormalClosure {
		t.Errorf("CloseCode = %d, want %d", result.CloseCode, websocket.CloseNormalClosure)
	}
	rec.want(t, ui.StepComplete, ui.StepComplete, ui.StepComplete, ui.StepComplete)

	details := result.Details()
	if details["Subprotocol"] != subprotocol.OCPP201 || details["Close Code"] != "1000" {
		t.Errorf("Details() = %v", details)
	}
}

func TestRunDefaultsToOCPP201AndSkipsExchange(t *testing.T) {
	url := newGateway(t)
	rec := newStepRecorder()

	result, err := Run(context.Background(), Options{URL: url}, rec.onStep)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Offered) != 1 || result.Offered[0] != subprotocol.OCPP201 {
		t.Errorf("Offered = %v, want [%s]", result.Offered, subprotocol.OCPP201)
	}
	rec.want(t, ui.StepComplete, ui.StepComplete, ui.StepSkipped, ui.StepComplete)
}

func TestRunReportsRejectedHandshake(t *testing.T) {
	url := newGateway(t)
	rec := newStepRecorder()

	result, err := Run(context.Background(), Options{
		URL:          url,
		Subprotocols: []string{subprotocol.OCPP16},
	}, rec.onStep)

	var hsErr *HandshakeError
	if !errors.As(err, &hsErr) {
		t.Fatalf("Run() error = %v, want *HandshakeError", err)
	}
	if hsErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", hsErr.StatusCode)
	}
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Errorf("error should wrap websocket.ErrBadHandshake")
	}
	if result == nil || result.StatusCode != http.StatusForbidden {
		t.Errorf("result = %+v, want StatusCode 403", result)
	}
	rec.want(t, ui.StepFailed, ui.StepSkipped, ui.StepSkipped, ui.StepSkipped)
}

func plainUpgradeServer(t *testing.T, chosen string) string {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		h := http.Header{}
		if chosen != "" {
			h.Set("Sec-WebSocket-Protocol", chosen)
		}
		conn, err := upgrader.Upgrade(w, r, h)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestRunNoSubprotocol(t *testing.T) {
	url := plainUpgradeServer(t, "")

	t.Run("rejected by default", func(t *testing.T) {
		rec := newStepRecorder()
		_, err := Run(context.Background(), Options{URL: url, Timeout: 5 * time.Second}, rec.onStep)
		if !errors.Is(err, ErrNoSubprotocol) {
			t.Fatalf("Run() error = %v, want ErrNoSubprotocol", err)
		}
		rec.want(t, ui.StepComplete, ui.StepFailed, ui.StepSkipped, ui.StepSkipped)
	})

	t.Run("allowed", func(t *testing.T) {
		result, err := Run(context.Background(), Options{URL: url, AllowNone: true, Timeout: 5 * time.Second}, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.Subprotocol != "" {
			t.Errorf("Subprotocol = %q, want empty", result.Subprotocol)
		}
		if result.Details()["Subprotocol"] != "(none)" {
			t.Errorf("Details()[Subprotocol] = %q", result.Details()["Subprotocol"])
		}
	})
}

func TestRunUnexpectedSubprotocol(t *testing.T) {
	url := plainUpgradeServer(t, subprotocol.OCPP16)

	_, err := Run(context.Background(), Options{URL: url, Timeout: 5 * time.Second}, nil)
	if !errors.Is(err, ErrUnexpectedSubprotocol) {
		t.Fatalf("Run() error = %v, want ErrUnexpectedSubprotocol", err)
	}
}

func TestRunUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	ts.Close()

	rec := newStepRecorder()
	result, err := Run(context.Background(), Options{URL: url, Timeout: 2 * time.Second}, rec.onStep)
	if err == nil {
		t.Fatal("Run() succeeded against a closed server")
	}
	var hsErr *HandshakeError
	if errors.As(err, &hsErr) {
		t.Errorf("Run() error = %v, want a dial error", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
	rec.want(t, ui.StepFailed)
}

func TestRunRequiresURL(t *testing.T) {
	if _, err := Run(context.Background(), Options{}, nil); err == nil {
		t.Error("Run() without URL should fail")
	}
}
