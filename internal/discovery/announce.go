package discovery

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/villekr/wsgate/internal/logging"
)

// Announcement is a registered mDNS service. Shutdown withdraws it.
type Announcement struct {
	server   *zeroconf.Server
	instance string
	port     int
}

// Announce registers instance as an "_wsgate._tcp" service on port with the
// given TXT records, on all multicast-capable interfaces.
func Announce(instance string, port int, text []string) (*Announcement, error) {
	if instance == "" {
		return nil, fmt.Errorf("mDNS instance name is required")
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, text, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Announcing service via mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
		zap.Strings("txt", text),
	)

	return &Announcement{server: server, instance: instance, port: port}, nil
}

// Shutdown withdraws the announcement. Safe on a nil Announcement.
func (a *Announcement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	logging.Debug("mDNS announcement withdrawn", zap.String("instance", a.instance))
}

// AnnouncementText builds the TXT records describing a server.
func AnnouncementText(path string, tls bool, subprotocols []string, version string) []string {
	if path == "" {
		path = "/"
	}
	text := []string{
		TXTPath + "=" + path,
		TXTTLS + "=" + strconv.FormatBool(tls),
	}
	if len(subprotocols) > 0 {
		text = append(text, TXTSubprotocols+"="+strings.Join(subprotocols, ","))
	}
	if version != "" {
		text = append(text, TXTVersion+"="+version)
	}
	return text
}
