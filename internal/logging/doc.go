// Package logging provides structured logging for the wsgate server and probe.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the adapter and its transport. It provides general
// logging functions and specialized functions for connection, lifespan and
// WebSocket message events.
//
// # Log Levels
//
//   - Debug: Event-by-event dispatch traces, hex dumps of payloads
//   - Info: Connections, negotiated subprotocols, lifespan acknowledgements
//   - Warn: Rejected connections, ignored events
//   - Error: Startup/shutdown failures, transport errors
//
// # Structured Logging
//
//	logging.Info("Subprotocol negotiated",
//	    zap.String("remote_addr", "192.168.1.100"),
//	    zap.String("subprotocol", "ocpp2.0.1"),
//	)
//
// # Specialized Logging
//
// Connection Logging:
//
//	logging.LogConnection(remoteAddr, "opened", zap.String("path", path))
//	logging.LogConnection(remoteAddr, "upgraded", zap.String("subprotocol", chosen))
//	logging.LogConnection(remoteAddr, "closed")
//
// WebSocket Message Logging:
//
//	logging.LogWebSocketMessage(remoteAddr, "received", websocket.TextMessage, payload)
//
// Lifespan Logging:
//
//	logging.LogLifespan("lifespan.startup", "lifespan.startup.complete", nil)
//
// # Configuration
//
// Initialize logging at process startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given, WSGATE_LOG_LEVEL is consulted. When neither is set
// the logger is a no-op, which keeps CLI output clean.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
