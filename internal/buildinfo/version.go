// Package buildinfo reports the portalr binary version.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// version is set at link time by release builds:
//
//	go build -ldflags "-X github.com/fdbesanto2/portalr/internal/buildinfo.version=v1.2.0"
var version string

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Version returns the version string for the current build.
//
// A link-time version wins. Otherwise a module version from go install is
// used, then a development pseudo-version:
//   - "dev-<hash>" for clean builds (e.g., "dev-abc123def456")
//   - "dev-<hash>-dirty" for builds with uncommitted changes
//   - "dev" if no VCS info is available
//   - "unknown" if build info cannot be read
func Version() string {
	if version != "" {
		return version
	}
	info, ok := readBuildInfo()
	if !ok {
		return "unknown"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return devVersion(info)
}

// UserAgent returns the User-Agent sent to release backends.
func UserAgent() string {
	return "portalr/" + Version()
}

// devVersion builds "dev-<hash>[-dirty]" from VCS settings, or "dev".
func devVersion(info *debug.BuildInfo) string {
	var revision string
	var modified bool

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}

	if revision == "" {
		return "dev"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}

	v := fmt.Sprintf("dev-%s", revision)
	if modified {
		v += "-dirty"
	}
	return v
}
