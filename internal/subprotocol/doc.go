// Package subprotocol negotiates the WebSocket subprotocol a connection will
// speak.
//
// A Selector receives the identifiers offered by the peer (the
// Sec-WebSocket-Protocol header, in peer order) and returns the one to
// accept, or ErrNoAcceptable. Two policies are provided:
//
//   - Required: accept only one specific identifier, wherever it appears
//   - Preferred: accept the first identifier of the server's own ordered list
//     that the peer offered
//
// Selectors hold no mutable state and are safe for concurrent use.
//
//	sel := subprotocol.Required(subprotocol.OCPP201)
//	chosen, err := sel.Select([]string{"ocpp1.6", "ocpp2.0.1"}) // "ocpp2.0.1"
package subprotocol
