// Package server implements the WebSocket transport that drives the event
// dispatcher.
//
// The server owns the network side of every connection and translates it
// into the event vocabulary of package event:
//
//   - A WebSocket upgrade request becomes a "websocket" scope. The first
//     receive yields websocket.connect, later receives yield one
//     websocket.receive per message and a final websocket.disconnect.
//     The HTTP 101 response is only written when the application sends
//     websocket.accept, advertising exactly the subprotocol it chose.
//   - Any other request becomes an "http" scope. An application error
//     aborts the response.
//   - Start and Shutdown each run a "lifespan" scope. A
//     lifespan.startup.failed answer stops Start before it listens.
//
// # Routes
//
//	GET /healthz          liveness and active connection count
//	GET <MetricsPath>     Prometheus metrics (when enabled)
//	<Path>, <Path>/*      connections handed to the application
//
// # Usage Example
//
//	app, _ := adapter.New(adapter.WithSelector(subprotocol.Required(subprotocol.OCPP201)))
//
//	srv, err := server.New(&server.Config{Port: 9000}, app)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until ctx is done or SIGINT/SIGTERM
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # TLS
//
// TLS is enabled when a certificate and key are configured, or when
// GenerateCert asks for an in-memory self-signed certificate. TLS 1.2 is the
// minimum version.
//
// # Graceful Shutdown
//
// Shutdown stops accepting connections, sends a 1001 close frame to every
// open WebSocket, waits up to 10 seconds for the handlers to return and then
// runs the lifespan shutdown exchange.
package server
