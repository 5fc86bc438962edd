// Package version reports what build is running
package version

import "runtime/debug"

// Set with -ldflags "-X retrosignal/internal/core/version.version=v0.2.0 ...".
// commit and date fall back to the VCS stamp the go tool embeds
var (
	version = "dev"
	commit  = ""
	date    = ""
)

// BuildInfo is served by /version and stamped into the API document
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the running build
func Info() BuildInfo {
	b := BuildInfo{Service: "retrosignal", Version: version, Commit: commit, Date: date}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && b.Commit == "":
				b.Commit = s.Value
			case s.Key == "vcs.time" && b.Date == "":
				b.Date = s.Value
			}
		}
	}
	if b.Commit == "" {
		b.Commit = "none"
	}
	if b.Date == "" {
		b.Date = "unknown"
	}
	return b
}
