// Package event defines the vocabulary exchanged between a transport and the
// adapter: connection phases, event types, the Event record and the
// Connection Scope.
//
// Every event type belongs to exactly one phase and has a direction. The
// transport produces inbound events (lifespan.startup, websocket.connect,
// http.request, ...) and consumes outbound ones (lifespan.startup.complete,
// websocket.accept, ...). Wire names follow the dotted "phase.event" form:
//
//	{"type": "websocket.accept", "subprotocol": "ocpp2.0.1"}
//
// A connection's phase is fixed when its Scope is created.
package event
