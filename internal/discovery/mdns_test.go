package discovery

import (
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name: "gateway with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "wsgate-lab"},
				HostName:      "lab-pi.local.",
				Port:          9000,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"path=/", "tls=false"},
			},
			wantIP:   "192.168.4.16",
			wantPort: 9000,
		},
		{
			name: "no port specified (should default to 9000)",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "wsgate-lab"},
				AddrIPv4:      []net.IP{net.ParseIP("172.16.0.1")},
			},
			wantIP:   "172.16.0.1",
			wantPort: DefaultPort,
		},
		{
			name: "missing instance",
			entry: &zeroconf.ServiceEntry{
				Port:     9000,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name: "no IP address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "wsgate-lab"},
				Port:          9000,
			},
			wantNil: true,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "wsgate-v6"},
				Port:          9000,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
			},
			wantIP:   "fe80::1",
			wantPort: 9000,
		},
		{
			name: "both IPv4 and IPv6 (should prefer IPv4)",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "wsgate-dual"},
				Port:          9000,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::2")},
			},
			wantIP:   "192.168.1.50",
			wantPort: 9000,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if gw != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", gw)
				}
				return
			}

			if gw == nil {
				t.Fatal("parseServiceEntry() = nil, want gateway")
			}
			if gw.Instance != tt.entry.Instance {
				t.Errorf("gw.Instance = %v, want %v", gw.Instance, tt.entry.Instance)
			}
			if gw.IP != tt.wantIP {
				t.Errorf("gw.IP = %v, want %v", gw.IP, tt.wantIP)
			}
			if gw.Port != tt.wantPort {
				t.Errorf("gw.Port = %v, want %v", gw.Port, tt.wantPort)
			}
			if time.Since(gw.DiscoveredAt) > time.Second {
				t.Errorf("gw.DiscoveredAt is not recent: %v", gw.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntry_Metadata(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "wsgate-lab"},
		Port:          9000,
		AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
		Text:          AnnouncementText("/ocpp", true, []string{"ocpp2.0.1", "ocpp1.6"}, "1.2.0"),
	}

	gw := parseServiceEntry(entry)
	if gw == nil {
		t.Fatal("parseServiceEntry() = nil, want gateway")
	}

	if got, want := gw.URL(), "wss://192.168.4.16:9000/ocpp"; got != want {
		t.Errorf("gw.URL() = %v, want %v", got, want)
	}
	if got, want := gw.Subprotocols(), []string{"ocpp2.0.1", "ocpp1.6"}; !reflect.DeepEqual(got, want) {
		t.Errorf("gw.Subprotocols() = %v, want %v", got, want)
	}
	if got := gw.GetMetadata(TXTVersion); got != "1.2.0" {
		t.Errorf("gw.GetMetadata(version) = %v, want 1.2.0", got)
	}
}

func TestAnnouncementText(t *testing.T) {
	got := AnnouncementText("", false, nil, "")
	want := []string{"path=/", "tls=false"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AnnouncementText() = %v, want %v", got, want)
	}
}

func TestAnnounceValidation(t *testing.T) {
	if _, err := Announce("", 9000, nil); err == nil {
		t.Error("Announce() with empty instance should fail")
	}
	if _, err := Announce("wsgate", 0, nil); err == nil {
		t.Error("Announce() with port 0 should fail")
	}

	var a *Announcement
	a.Shutdown()
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}
