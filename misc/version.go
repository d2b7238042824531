// Package misc holds program identity: name, version and the commit it was
// built from.
package misc

import (
	"runtime/debug"
)

const appName = "invmap"

// Set with -ldflags "-X cssinv/misc.version=... -X cssinv/misc.gitHash=...".
var (
	version = ""
	gitHash = ""
)

func GetAppName() string {
	return appName
}

// GetVersion returns the version stamped at link time, falling back to the
// module version recorded in the build info.
func GetVersion() string {
	if version != "" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "(devel)"
}

// GetGitHash returns the commit the binary was built from, if known.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
