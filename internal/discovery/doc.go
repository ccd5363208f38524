// Package discovery announces and finds wsgate servers on the local network
// using multicast DNS (mDNS).
//
// A server started with announcing enabled registers an "_wsgate._tcp"
// service. Its TXT records describe how to reach it:
//
//	path=/ocpp
//	tls=true
//	subprotocols=ocpp2.0.1,ocpp2.0
//	version=1.2.0
//
// The probe browses for the same service type and turns every answer into a
// Gateway with a ready-to-dial WebSocket URL.
//
// # Usage Example
//
//	// Announce a server listening on port 9000
//	ann, err := discovery.Announce("wsgate-lab", 9000,
//	    discovery.AnnouncementText("/", false, []string{"ocpp2.0.1"}, "dev"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ann.Shutdown()
//
//	// Browse for 5 seconds
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 5 * time.Second
//	gateways, err := scanner.Scan(ctx)
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Servers and probes must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
