// Package version holds the build identity of the polcal binary.
package version

import (
	"runtime/debug"
)

const unknown = "unknown"

// Set with -ldflags "-X github.com/candersoncsiro/process-polcal/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

const (
	settingRevision = "vcs.revision"
	settingTime     = "vcs.time"
	shortHashLen    = 12
)

// InitBinaryVersion fills values not set at link time from the module build info.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case settingRevision:
			if Commit == unknown {
				Commit = s.Value[:min(len(s.Value), shortHashLen)]
			}
		case settingTime:
			if Date == unknown {
				Date = s.Value
			}
		}
	}
}

// String formats the version line printed by the version command.
func String() string {
	return "polcal " + Version + " (commit: " + Commit + ", built: " + Date + ")"
}
