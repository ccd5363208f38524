package subprotocol

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Well-known OCPP subprotocol identifiers.
const (
	OCPP16  = "ocpp1.6"
	OCPP20  = "ocpp2.0"
	OCPP201 = "ocpp2.0.1"
)

// DefaultSupported is the server's advertised list, most preferred first.
var DefaultSupported = []string{OCPP201, OCPP20, OCPP16}

// ErrNoAcceptable is returned when none of the offered identifiers is supported.
var ErrNoAcceptable = errors.New("no supported subprotocol available")

// Selector picks the subprotocol to accept from a peer's offer.
type Selector interface {
	Select(offered []string) (string, error)
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(offered []string) (string, error)

// Select calls f(offered).
func (f SelectorFunc) Select(offered []string) (string, error) {
	return f(offered)
}

// Required returns a Selector that accepts id when the peer offered it, in
// any position, and ignores every other identifier.
func Required(id string) Selector {
	return SelectorFunc(func(offered []string) (string, error) {
		if slices.Contains(offered, id) {
			return id, nil
		}
		return "", fmt.Errorf("%w: %s not in %v", ErrNoAcceptable, id, offered)
	})
}

// Preferred returns a Selector that walks supported in order and accepts the
// first identifier the peer offered.
func Preferred(supported ...string) Selector {
	ids := slices.Clone(supported)
	return SelectorFunc(func(offered []string) (string, error) {
		for _, id := range ids {
			if slices.Contains(offered, id) {
				return id, nil
			}
		}
		return "", fmt.Errorf("%w: offered %v, supported %v", ErrNoAcceptable, offered, ids)
	})
}

// Policy names accepted by New.
const (
	PolicyRequired  = "required"
	PolicyPreferred = "preferred"
)

// New builds a Selector from a policy name. For PolicyRequired, required is
// the identifier to demand; for PolicyPreferred, supported is the ordered list.
func New(policy, required string, supported []string) (Selector, error) {
	switch policy {
	case PolicyRequired, "":
		if required == "" {
			return nil, errors.New("required policy needs a subprotocol identifier")
		}
		return Required(required), nil
	case PolicyPreferred:
		if len(supported) == 0 {
			return nil, errors.New("preferred policy needs at least one supported subprotocol")
		}
		return Preferred(supported...), nil
	default:
		return nil, fmt.Errorf("unknown subprotocol policy %q (expected %q or %q)", policy, PolicyRequired, PolicyPreferred)
	}
}

// ParseHeader splits a Sec-WebSocket-Protocol header value into identifiers.
func ParseHeader(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if id := strings.TrimSpace(part); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// FormatHeader joins identifiers into a Sec-WebSocket-Protocol header value.
func FormatHeader(ids []string) string {
	return strings.Join(ids, ", ")
}
