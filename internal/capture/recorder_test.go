package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/villekr/wsgate/internal/adapter"
	"github.com/villekr/wsgate/internal/event"
	"github.com/villekr/wsgate/internal/subprotocol"
)

// serveScript runs one websocket connection through app with a fixed list of
// inbound events.
func serveScript(t *testing.T, app *adapter.Application, events ...event.Event) []event.Event {
	t.Helper()
	var sent []event.Event
	i := 0
	receive := func(ctx context.Context) (event.Event, error) {
		if i >= len(events) {
			return event.Event{}, errors.New("script exhausted")
		}
		ev := events[i]
		i++
		return ev, nil
	}
	send := func(ctx context.Context, ev event.Event) error {
		sent = append(sent, ev)
		return nil
	}
	scope := event.Scope{
		Type:         event.PhaseWebSocket,
		Subprotocols: []string{subprotocol.OCPP201},
		Path:         "/ocpp/CP001",
		RemoteAddr:   "192.168.1.50:51000",
	}
	if err := app.Serve(context.Background(), scope, receive, send); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	return sent
}

func readRecords(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open(%s) error = %v", path, err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}
	return records
}

func TestRecorderCapturesAndDelegates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")

	var delegated []adapter.Message
	next := adapter.MessageHandlerFunc(func(ctx context.Context, s *adapter.Session, msg adapter.Message) error {
		delegated = append(delegated, msg)
		return nil
	})

	rec := NewRecorder(dir, next)
	rec.now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }

	app, err := adapter.New(
		adapter.WithSelector(subprotocol.Required(subprotocol.OCPP201)),
		adapter.WithMessageHandler(rec),
		adapter.WithStartup(rec.Open),
		adapter.WithShutdown(rec.Close),
	)
	if err != nil {
		t.Fatalf("adapter.New() error = %v", err)
	}

	if err := rec.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if want := filepath.Join(dir, "capture-20250314-092653.jsonl"); rec.Path() != want {
		t.Errorf("Path() = %v, want %v", rec.Path(), want)
	}

	serveScript(t, app,
		event.Event{Type: event.WebSocketConnect},
		event.Event{Type: event.WebSocketReceive, Text: `[2,"1","Heartbeat",{}]`},
		event.Event{Type: event.WebSocketReceive, Body: []byte{0x00, 'O', 'K', 0xff}},
		event.Event{Type: event.WebSocketDisconnect, Code: 1000},
	)

	if err := rec.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if len(delegated) != 2 {
		t.Fatalf("delegated %d messages, want 2", len(delegated))
	}
	if rec.Count() != 2 {
		t.Errorf("Count() = %d, want 2", rec.Count())
	}

	records := readRecords(t, rec.Path())
	if len(records) != 2 {
		t.Fatalf("capture file has %d records, want 2", len(records))
	}

	first := records[0]
	if first.MessageNum != 1 || first.FrameType != "text" || first.Subprotocol != subprotocol.OCPP201 {
		t.Errorf("first record = %+v", first)
	}
	if first.RemoteAddr != "192.168.1.50:51000" || first.Path != "/ocpp/CP001" {
		t.Errorf("first record address = %s %s", first.RemoteAddr, first.Path)
	}

	second := records[1]
	if second.FrameType != "binary" || second.PayloadLen != 4 {
		t.Errorf("second record = %+v", second)
	}
	if second.PayloadHex != "004f4bff" || second.PayloadASCII != ".OK." {
		t.Errorf("second payload = %s / %s", second.PayloadHex, second.PayloadASCII)
	}
}

func TestRecorderWithoutOpenOnlyDelegates(t *testing.T) {
	called := false
	rec := NewRecorder(t.TempDir(), adapter.MessageHandlerFunc(func(ctx context.Context, s *adapter.Session, msg adapter.Message) error {
		called = true
		return nil
	}))

	app, err := adapter.New(
		adapter.WithSelector(subprotocol.Required(subprotocol.OCPP201)),
		adapter.WithMessageHandler(rec),
	)
	if err != nil {
		t.Fatalf("adapter.New() error = %v", err)
	}

	serveScript(t, app,
		event.Event{Type: event.WebSocketConnect},
		event.Event{Type: event.WebSocketReceive, Text: "x"},
		event.Event{Type: event.WebSocketDisconnect},
	)

	if !called {
		t.Error("next handler was not called")
	}
	if rec.Path() != "" || rec.Count() != 0 {
		t.Errorf("Path() = %q, Count() = %d, want nothing recorded", rec.Path(), rec.Count())
	}
	if err := rec.Close(context.Background()); err != nil {
		t.Errorf("Close() without Open error = %v", err)
	}
}

func TestRecorderOpenTwice(t *testing.T) {
	rec := NewRecorder(t.TempDir(), nil)
	if err := rec.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rec.Close(context.Background())

	if err := rec.Open(context.Background()); err == nil {
		t.Error("second Open() should fail")
	}
}

func TestRecorderOpenFailsOnFile(t *testing.T) {
	// A regular file where the directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}

	rec := NewRecorder(blocker, nil)
	if err := rec.Open(context.Background()); err == nil {
		t.Error("Open() should fail when the directory cannot be created")
	}
}

func TestToASCII(t *testing.T) {
	if got := toASCII([]byte("a\x00b\nc~")); got != "a.b.c~" {
		t.Errorf("toASCII() = %q, want %q", got, "a.b.c~")
	}
}
