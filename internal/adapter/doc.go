// Package adapter turns a transport's event stream into application
// callbacks.
//
// The transport calls Application.Serve once per logical connection with a
// Scope and a receive/send pair. Serve inspects the scope's phase once and
// hands the whole stream to one handler:
//
//   - lifespan: the lifecycle handler receives one event (startup or
//     shutdown), runs the registered hooks and answers with exactly one
//     *.complete or *.failed acknowledgement. Hook failures are logged and
//     never returned.
//   - websocket, http: the connection handler loops over inbound events in
//     arrival order until a terminal event. On websocket.connect the injected
//     subprotocol.Selector picks the subprotocol sent in websocket.accept;
//     websocket.receive payloads go to the MessageHandler. http.request is
//     rejected with ErrUnsupportedOperation.
//
// Failures that end a connection are *Error values; match them with
// errors.Is against ErrUnsupportedScope, ErrUnsupportedOperation,
// ErrNoAcceptableSubprotocol and ErrUnexpectedEvent.
//
// # Usage Example
//
//	app, err := adapter.New(
//	    adapter.WithSelector(subprotocol.Required(subprotocol.OCPP201)),
//	    adapter.WithMessageHandler(adapter.LogHandler()),
//	    adapter.WithStartup(recorder.Open),
//	)
//	if err != nil {
//	    return err
//	}
//	err = app.Serve(ctx, scope, receive, send)
//
// # Thread Safety
//
// An Application holds no per-connection state; Serve may run concurrently
// for any number of connections.
package adapter
