package capture

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		payload    string
		wantKind   string
		wantAction string
	}{
		{`[2,"19223201","BootNotification",{"reason":"PowerUp"}]`, KindCall, "BootNotification"},
		{`[3,"19223201",{"status":"Accepted"}]`, KindCallResult, ""},
		{`[4,"19223201","NotImplemented","",{}]`, KindCallError, ""},
		{`[2,"1","",{}]`, KindOther, ""},
		{`[2,"1","Heartbeat"]`, KindOther, ""},
		{`["2","1","Heartbeat",{}]`, KindOther, ""},
		{`{"action":"Heartbeat"}`, KindOther, ""},
		{"\x00\x01\xfe", KindOther, ""},
	}

	for _, tt := range tests {
		kind, action := Classify([]byte(tt.payload))
		if kind != tt.wantKind || action != tt.wantAction {
			t.Errorf("Classify(%q) = (%q, %q), want (%q, %q)", tt.payload, kind, action, tt.wantKind, tt.wantAction)
		}
	}
}

func captureLine(t *testing.T, num int, ts time.Time, peer string, payload string) string {
	t.Helper()
	data, err := json.Marshal(Record{
		Timestamp:   ts,
		MessageNum:  num,
		RemoteAddr:  peer,
		Subprotocol: "ocpp2.0.1",
		Direction:   "peer->server",
		FrameType:   "text",
		PayloadLen:  len(payload),
		PayloadHex:  hex.EncodeToString([]byte(payload)),
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return string(data)
}

func TestAnalyze(t *testing.T) {
	start := time.Date(2025, 11, 21, 3, 9, 5, 0, time.UTC)
	lines := []string{
		captureLine(t, 1, start, "10.0.0.5:40000", `[2,"1","BootNotification",{}]`),
		captureLine(t, 2, start.Add(30*time.Second), "10.0.0.5:40000", `[2,"2","Heartbeat",{}]`),
		"not json",
		"",
		captureLine(t, 3, start.Add(90*time.Second), "10.0.0.6:40001", `[3,"9",{}]`),
		captureLine(t, 4, start.Add(60*time.Second), "10.0.0.6:40001", `[2,"3","Heartbeat",{}]`),
	}

	s, err := Analyze(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if s.Messages != 4 {
		t.Errorf("Messages = %d, want 4", s.Messages)
	}
	if s.Malformed != 1 {
		t.Errorf("Malformed = %d, want 1", s.Malformed)
	}
	if s.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", s.Duration())
	}
	if s.Peers["10.0.0.5:40000"] != 2 || s.Peers["10.0.0.6:40001"] != 2 {
		t.Errorf("Peers = %v", s.Peers)
	}
	if s.Kinds[KindCall] != 3 || s.Kinds[KindCallResult] != 1 {
		t.Errorf("Kinds = %v", s.Kinds)
	}
	if s.Actions["Heartbeat"] != 2 || s.Actions["BootNotification"] != 1 {
		t.Errorf("Actions = %v", s.Actions)
	}
	if s.Subprotocols["ocpp2.0.1"] != 4 {
		t.Errorf("Subprotocols = %v", s.Subprotocols)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	s, err := Analyze(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if s.Messages != 0 || s.Duration() != 0 {
		t.Errorf("Summary = %+v, want empty", s)
	}
}
