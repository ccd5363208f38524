package event

// Phase is the category of a connection's event vocabulary.
type Phase string

const (
	PhaseLifespan  Phase = "lifespan"
	PhaseWebSocket Phase = "websocket"
	PhaseHTTP      Phase = "http"
)

// Phases lists every supported phase.
var Phases = []Phase{PhaseLifespan, PhaseWebSocket, PhaseHTTP}

// Valid reports whether p is one of the supported phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseLifespan, PhaseWebSocket, PhaseHTTP:
		return true
	default:
		return false
	}
}

func (p Phase) String() string {
	if p == "" {
		return "<empty>"
	}
	return string(p)
}
