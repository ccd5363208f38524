// Package version reports the build version of the wsgate binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/villekr/wsgate/internal/version.Version=v1.2.3 \
//	                   -X github.com/villekr/wsgate/internal/version.Commit=abc123"
//
// Missing values are filled from the module and VCS build info, then fall
// back to "dev-<timestamp>" and "unknown".
var (
	Version = ""
	Commit  = ""
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		Version, Commit = fromBuildInfo(info, Version, Commit)
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo fills empty version/commit values from info. A tagged
// module version (go install ...@v1.2.3) wins over the VCS date.
func fromBuildInfo(info *debug.BuildInfo, version, commit string) (string, string) {
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if commit == "" {
		if rev := settings["vcs.revision"]; rev != "" {
			if len(rev) > 7 {
				rev = rev[:7]
			}
			if settings["vcs.modified"] == "true" {
				rev += "-dirty"
			}
			commit = rev
		}
	}

	if version == "" {
		switch {
		case info.Main.Version != "" && info.Main.Version != "(devel)":
			version = info.Main.Version
		case settings["vcs.time"] != "":
			if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
				version = "dev-" + t.Format("20060102")
			}
		}
	}
	return version, commit
}

// Full returns the version with its commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s, %s %s/%s)", Version, Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies wsgate binaries in HTTP and WebSocket handshakes
func UserAgent(binary string) string {
	return binary + "/" + Version
}
