package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	mu     sync.RWMutex
)

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "WSGATE_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks WSGATE_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		setLogger(zap.NewNop())
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	l, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	setLogger(l)

	return nil
}

// ParseLevel maps a level name to a zap level. Unknown names map to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLogger replaces the global logger and returns a function restoring the
// previous one. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) (restore func()) {
	mu.Lock()
	prev := logger
	logger = l
	mu.Unlock()
	return func() { setLogger(prev) }
}

func setLogger(l *zap.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		// Silent until initialized
		return zap.NewNop()
	}
	return l
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogConnection logs a connection state change ("accepted", "upgraded",
// "closed") for the peer at remoteAddr.
func LogConnection(remoteAddr string, state string, fields ...zap.Field) {
	Info("Connection "+state, append([]zap.Field{zap.String("remote_addr", remoteAddr)}, fields...)...)
}

// LogLifespan logs a lifespan exchange: the inbound event and the
// acknowledgement that was sent for it.
func LogLifespan(received string, acknowledged string, err error) {
	if err != nil {
		Error("Lifespan event failed",
			zap.String("event", received),
			zap.String("ack", acknowledged),
			zap.Error(err),
		)
		return
	}
	Info("Lifespan event handled",
		zap.String("event", received),
		zap.String("ack", acknowledged),
	)
}

// LogHTTPRequest logs an HTTP request
func LogHTTPRequest(remoteAddr string, method string, path string, headers map[string]string) {
	Info("HTTP request received",
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("path", path),
		zap.Any("headers", headers),
	)
}

// LogWebSocketMessage logs one WebSocket frame. Text frames carry their
// content; binary frames carry a hex and printable-ASCII rendering of the
// first dumpLimit bytes. At debug level text frames get the hex dump too.
func LogWebSocketMessage(remoteAddr string, direction string, messageType int, data []byte) {
	fields := []zap.Field{
		zap.String("remote_addr", remoteAddr),
		zap.String("direction", direction),
		zap.String("message_type", frameTypeName(messageType)),
		zap.Int("length", len(data)),
	}

	switch {
	case messageType == websocket.TextMessage:
		fields = append(fields, zap.String("content", string(data)))
		if GetLogger().Core().Enabled(zapcore.DebugLevel) {
			fields = append(fields, zap.String("hex_dump", hexDump(data)))
		}
	case len(data) > 0:
		fields = append(fields,
			zap.String("hex_dump", hexDump(data)),
			zap.String("ascii", asciiDump(data)),
		)
	}

	Info("WebSocket message", fields...)
}

func frameTypeName(messageType int) string {
	switch messageType {
	case websocket.TextMessage:
		return "text"
	case websocket.BinaryMessage:
		return "binary"
	case websocket.CloseMessage:
		return "close"
	case websocket.PingMessage:
		return "ping"
	case websocket.PongMessage:
		return "pong"
	default:
		return fmt.Sprintf("unknown(%d)", messageType)
	}
}

// dumpLimit caps the bytes rendered into a single log entry.
const dumpLimit = 256

func hexDump(data []byte) string {
	if len(data) > dumpLimit {
		return hex.EncodeToString(data[:dumpLimit]) + "..."
	}
	return hex.EncodeToString(data)
}

func asciiDump(data []byte) string {
	if len(data) > dumpLimit {
		data = data[:dumpLimit]
	}
	out := []byte(string(data))
	for i, b := range out {
		if b < 32 || b > 126 {
			out[i] = '.'
		}
	}
	return string(out)
}

// Sync flushes any buffered log entries
func Sync() {
	_ = GetLogger().Sync()
}
