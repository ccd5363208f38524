package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func plainRunner(buf *bytes.Buffer, steps ...string) *Runner {
	plain := true
	return NewRunner(RunnerConfig{
		Title:           "Subprotocol Probe",
		Command:         "wsgate-probe connect ws://127.0.0.1:9000/",
		Params:          map[string]string{"URL": "ws://127.0.0.1:9000/", "Offered": "ocpp2.0.1"},
		StepNames:       steps,
		Troubleshooting: []string{"Check the server is running"},
		Output:          buf,
		Plain:           &plain,
	})
}

func TestRunnerSuccessPlain(t *testing.T) {
	var buf bytes.Buffer
	r := plainRunner(&buf, "Dial", "Negotiate")

	err := r.Run(context.Background(), func(onStep StepCallback) (map[string]string, error) {
		onStep(1, "", StepRunning, "")
		onStep(1, "", StepComplete, "3ms")
		onStep(2, "Negotiate subprotocol", StepComplete, "ocpp2.0.1")
		return map[string]string{"Subprotocol": "ocpp2.0.1"}, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"SUBPROTOCOL PROBE",
		"  Offered: ocpp2.0.1\n  URL: ws://127.0.0.1:9000/",
		"[1/2] Dial ✓ (3ms)",
		"[2/2] Negotiate subprotocol ✓ (ocpp2.0.1)",
		"SUCCESS: Subprotocol Probe complete",
		"  Subprotocol: ocpp2.0.1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\r") {
		t.Error("plain output should not contain carriage returns")
	}

	steps := r.Steps()
	if steps[1].Name != "Negotiate subprotocol" || steps[1].Status != StepComplete {
		t.Errorf("step 2 = %+v", steps[1])
	}
}

func TestRunnerFailurePlain(t *testing.T) {
	var buf bytes.Buffer
	r := plainRunner(&buf, "Dial")

	boom := errors.New("connection refused")
	err := r.Run(context.Background(), func(onStep StepCallback) (map[string]string, error) {
		onStep(1, "", StepFailed, "refused")
		return map[string]string{"HTTP Status": "403"}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}

	out := buf.String()
	for _, want := range []string{
		"[1/1] Dial ✗ (refused)",
		"FAILED: Subprotocol Probe failed",
		"  Error: connection refused",
		"  HTTP Status: 403",
		"  - Check the server is running",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProgressUpdateStep(t *testing.T) {
	p := NewProgress([]string{"a", "b", "c", "d"})

	p.UpdateStep(1, StepRunning, "")
	if p.Current != 1 || p.Percent != 0 {
		t.Errorf("after start: Current = %d, Percent = %v", p.Current, p.Percent)
	}

	p.UpdateStep(1, StepComplete, "")
	p.UpdateStep(2, StepSkipped, "")
	p.UpdateStep(3, StepFailed, "")
	if p.Percent != 0.5 {
		t.Errorf("Percent = %v, want 0.5", p.Percent)
	}

	// Out of range is ignored
	p.UpdateStep(0, StepComplete, "")
	p.UpdateStep(5, StepComplete, "")
	if p.Percent != 0.5 {
		t.Errorf("Percent after out-of-range updates = %v, want 0.5", p.Percent)
	}
}

func TestStyledRenderingContainsContent(t *testing.T) {
	h := NewHeader("Discover", "wsgate-probe discover", map[string]string{"Timeout": "5s"})
	if out := h.Render(); !strings.Contains(out, "DISCOVER") || !strings.Contains(out, "5s") {
		t.Errorf("Header.Render() = %q", out)
	}

	res := NewWarningResult("No gateways found", map[string]string{"Service": "_wsgate._tcp"})
	if out := res.Render(); !strings.Contains(out, "WARNING") || !strings.Contains(out, "_wsgate._tcp") {
		t.Errorf("Result.Render() = %q", out)
	}
}

func TestRenderOnceNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderOnce(&buf, "hello"); err != nil {
		t.Fatalf("RenderOnce() error = %v", err)
	}
	if buf.String() != "hello\n" {
		t.Errorf("RenderOnce() wrote %q", buf.String())
	}
}
