package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestVersionPopulated(t *testing.T) {
	if Version == "" {
		t.Error("Version should never be empty after init")
	}
	if Commit == "" {
		t.Error("Commit should never be empty after init")
	}
}

func TestFromBuildInfo(t *testing.T) {
	vcs := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2025-11-21T03:09:05Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	tests := []struct {
		name        string
		info        *debug.BuildInfo
		version     string
		commit      string
		wantVersion string
		wantCommit  string
	}{
		{
			name:        "vcs only",
			info:        &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}, Settings: vcs},
			wantVersion: "dev-20251121",
			wantCommit:  "0123456-dirty",
		},
		{
			name:        "tagged module",
			info:        &debug.BuildInfo{Main: debug.Module{Version: "v1.4.0"}, Settings: vcs},
			wantVersion: "v1.4.0",
			wantCommit:  "0123456-dirty",
		},
		{
			name:        "ldflags win",
			info:        &debug.BuildInfo{Main: debug.Module{Version: "v1.4.0"}, Settings: vcs},
			version:     "v2.0.0",
			commit:      "abc123",
			wantVersion: "v2.0.0",
			wantCommit:  "abc123",
		},
		{
			name: "nothing known",
			info: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, c := fromBuildInfo(tt.info, tt.version, tt.commit)
			if v != tt.wantVersion || c != tt.wantCommit {
				t.Errorf("fromBuildInfo() = (%q, %q), want (%q, %q)", v, c, tt.wantVersion, tt.wantCommit)
			}
		})
	}
}

func TestFull(t *testing.T) {
	if full := Full(); !strings.HasPrefix(full, Version+" (commit: "+Commit+", go") {
		t.Errorf("Full() = %q", full)
	}
}

func TestUserAgent(t *testing.T) {
	if got, want := UserAgent("wsgate-probe"), "wsgate-probe/"+Version; got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}
