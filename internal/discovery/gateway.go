package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// TXT record keys published by Announce.
const (
	TXTPath         = "path"
	TXTTLS          = "tls"
	TXTSubprotocols = "subprotocols"
	TXTVersion      = "version"
)

// Gateway represents a wsgate server found on the network
type Gateway struct {
	// Instance is the mDNS instance name (e.g., "wsgate-lab")
	Instance string

	// Hostname is the mDNS hostname (e.g., "lab-pi.local.")
	Hostname string

	// IP is the preferred address (IPv4 when available)
	IP string

	// Port is the listening port
	Port int

	// Metadata contains the TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the gateway answered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the gateway
func (g *Gateway) String() string {
	return fmt.Sprintf("wsgate %s (%s) at %s", g.Instance, g.Hostname, net.JoinHostPort(g.IP, strconv.Itoa(g.Port)))
}

// URL returns the WebSocket URL advertised by the gateway
func (g *Gateway) URL() string {
	scheme := "ws"
	if g.TLS() {
		scheme = "wss"
	}
	path := g.GetMetadata(TXTPath)
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(g.IP, strconv.Itoa(g.Port)), path)
}

// TLS reports whether the gateway serves wss://
func (g *Gateway) TLS() bool {
	v, _ := strconv.ParseBool(g.GetMetadata(TXTTLS))
	return v
}

// Subprotocols returns the advertised subprotocol identifiers in order
func (g *Gateway) Subprotocols() []string {
	raw := g.GetMetadata(TXTSubprotocols)
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (g *Gateway) GetMetadata(key string) string {
	if g.Metadata == nil {
		return ""
	}
	return g.Metadata[key]
}
