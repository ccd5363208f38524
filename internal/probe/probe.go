package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/villekr/wsgate/internal/logging"
	"github.com/villekr/wsgate/internal/subprotocol"
	"github.com/villekr/wsgate/internal/ui"
	"github.com/villekr/wsgate/internal/version"
)

// DefaultTimeout bounds the handshake and each read or write.
const DefaultTimeout = 10 * time.Second

// Step numbers reported to the callback.
const (
	StepHandshake = iota + 1
	StepNegotiate
	StepExchange
	StepClose
)

// StepNames labels the steps in order.
var StepNames = []string{
	"Open WebSocket handshake",
	"Check negotiated subprotocol",
	"Exchange message",
	"Close connection",
}

var (
	// ErrNoSubprotocol is returned when the server accepted the connection
	// without choosing a subprotocol.
	ErrNoSubprotocol = errors.New("server accepted without negotiating a subprotocol")

	// ErrUnexpectedSubprotocol is returned when the server chose an
	// identifier that was never offered.
	ErrUnexpectedSubprotocol = errors.New("server negotiated a subprotocol that was not offered")
)

// HandshakeError reports a handshake the server answered with a non-101
// status.
type HandshakeError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake rejected: %s", e.Status)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// Options configures a probe.
type Options struct {
	URL          string
	Subprotocols []string      // Offered in order; defaults to ocpp2.0.1
	AllowNone    bool          // Accept a connection with no negotiated subprotocol
	Message      string        // Sent as a text frame after the handshake when set
	Timeout      time.Duration // Defaults to DefaultTimeout
	Insecure     bool          // Skip TLS verification for wss:// URLs
}

// Result describes a completed probe.
type Result struct {
	URL         string
	Offered     []string
	Subprotocol string
	StatusCode  int
	Handshake   time.Duration
	Reply       string
	RoundTrip   time.Duration
	CloseCode   int
}

// Details returns the result as display key/value pairs.
func (r *Result) Details() map[string]string {
	d := map[string]string{
		"URL":         r.URL,
		"Offered":     strings.Join(r.Offered, ", "),
		"Subprotocol": r.Subprotocol,
	}
	if r.Subprotocol == "" {
		d["Subprotocol"] = "(none)"
	}
	if r.StatusCode != 0 {
		d["HTTP Status"] = strconv.Itoa(r.StatusCode)
	}
	if r.Handshake > 0 {
		d["Handshake"] = r.Handshake.String()
	}
	if r.Reply != "" {
		d["Reply"] = r.Reply
		d["Round Trip"] = r.RoundTrip.String()
	}
	if r.CloseCode != 0 {
		d["Close Code"] = strconv.Itoa(r.CloseCode)
	}
	return d
}

// Run executes the probe. onStep may be nil. The returned Result is non-nil
// whenever the handshake got an HTTP response, including on failure.
func Run(ctx context.Context, opts Options, onStep ui.StepCallback) (*Result, error) {
	if onStep == nil {
		onStep = func(int, string, ui.StepStatus, string) {}
	}
	if opts.URL == "" {
		return nil, errors.New("probe: URL is required")
	}
	offered := opts.Subprotocols
	if len(offered) == 0 {
		offered = []string{subprotocol.OCPP201}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	result := &Result{URL: opts.URL, Offered: offered}

	onStep(StepHandshake, "", ui.StepRunning, "")
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
		Subprotocols:     offered,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: opts.Insecure}, //nolint:gosec // opt-in for self-signed servers
	}
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent("wsgate-probe"))

	logging.Debug("Dialing WebSocket",
		zap.String("url", opts.URL),
		zap.Strings("subprotocols", offered),
	)
	start := time.Now()
	conn, resp, err := dialer.DialContext(ctx, opts.URL, header)
	if resp != nil {
		result.StatusCode = resp.StatusCode
	}
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			err = &HandshakeError{StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
			onStep(StepHandshake, "", ui.StepFailed, resp.Status)
			skipRemaining(onStep, StepNegotiate)
			return result, err
		}
		onStep(StepHandshake, "", ui.StepFailed, "unreachable")
		skipRemaining(onStep, StepNegotiate)
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}
	defer conn.Close()
	result.Handshake = time.Since(start).Round(time.Microsecond)
	onStep(StepHandshake, "", ui.StepComplete, result.Handshake.String())

	onStep(StepNegotiate, "", ui.StepRunning, "")
	result.Subprotocol = conn.Subprotocol()
	switch {
	case result.Subprotocol == "" && !opts.AllowNone:
		onStep(StepNegotiate, "", ui.StepFailed, "none")
		closeConn(conn, timeout)
		skipRemaining(onStep, StepExchange)
		return result, ErrNoSubprotocol
	case result.Subprotocol != "" && !slices.Contains(offered, result.Subprotocol):
		onStep(StepNegotiate, "", ui.StepFailed, result.Subprotocol)
		closeConn(conn, timeout)
		skipRemaining(onStep, StepExchange)
		return result, fmt.Errorf("%w: %q", ErrUnexpectedSubprotocol, result.Subprotocol)
	case result.Subprotocol == "":
		onStep(StepNegotiate, "", ui.StepComplete, "none")
	default:
		onStep(StepNegotiate, "", ui.StepComplete, result.Subprotocol)
	}

	if opts.Message == "" {
		onStep(StepExchange, "", ui.StepSkipped, "no message")
	} else {
		onStep(StepExchange, "", ui.StepRunning, "")
		if err := exchange(conn, opts.Message, timeout, result); err != nil {
			onStep(StepExchange, "", ui.StepFailed, "")
			skipRemaining(onStep, StepClose)
			return result, err
		}
		onStep(StepExchange, "", ui.StepComplete, result.RoundTrip.String())
	}

	onStep(StepClose, "", ui.StepRunning, "")
	result.CloseCode = closeConn(conn, timeout)
	onStep(StepClose, "", ui.StepComplete, strconv.Itoa(result.CloseCode))

	logging.Info("Probe complete",
		zap.String("url", opts.URL),
		zap.String("subprotocol", result.Subprotocol),
		zap.Int("close_code", result.CloseCode),
	)
	return result, nil
}

func exchange(conn *websocket.Conn, message string, timeout time.Duration, result *Result) error {
	start := time.Now()
	_ = conn.SetWriteDeadline(start.Add(timeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	_ = conn.SetReadDeadline(start.Add(timeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("await reply: %w", err)
	}
	result.RoundTrip = time.Since(start).Round(time.Microsecond)
	result.Reply = string(data)
	logging.LogWebSocketMessage(conn.RemoteAddr().String(), "received", websocket.TextMessage, data)
	return nil
}

// closeConn starts a normal close and returns the code the server answered
// with, or 1006 when it never did.
func closeConn(conn *websocket.Conn, timeout time.Duration) int {
	deadline := time.Now().Add(timeout)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		return websocket.CloseAbnormalClosure
	}
	_ = conn.SetReadDeadline(deadline)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return ce.Code
			}
			return websocket.CloseAbnormalClosure
		}
	}
}

func skipRemaining(onStep ui.StepCallback, from int) {
	for step := from; step <= len(StepNames); step++ {
		onStep(step, "", ui.StepSkipped, "")
	}
}
