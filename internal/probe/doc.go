// Package probe opens a diagnostic WebSocket connection to a wsgate server.
//
// A probe offers a list of subprotocols, checks which one the server
// negotiated, optionally exchanges one message, and closes the connection
// normally. Each stage is reported through a ui.StepCallback so the
// wsgate-probe command can render progress as it happens.
//
//	result, err := probe.Run(ctx, probe.Options{
//		URL:          "ws://192.168.1.20:9000/ocpp/CP001",
//		Subprotocols: []string{"ocpp2.0.1"},
//	}, onStep)
//
// A rejected handshake returns a *HandshakeError carrying the HTTP status.
package probe
