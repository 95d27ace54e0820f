package version

import (
	"fmt"
	"strings"
)

var version = "dev"

// String returns the build version for the current binary.
func String() string {
	return version
}

// ForTesting overrides the version string and returns a cleanup function
// that restores the original value. Must not be called concurrently.
func ForTesting(v string) func() {
	original := version
	version = v
	return func() { version = original }
}

// Display returns a display-friendly version string: a "v" prefix for
// release versions, special values like "dev" unchanged.
func Display(v string) string {
	if v == "" || v == "dev" {
		return v
	}
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// Mismatch compares the local build version with the version reported by a
// running daemon. It returns a warning string when they differ, or an empty
// string when they match or when either side is a development build.
func Mismatch(daemonVersion string) string {
	if daemonVersion == "" || version == "" {
		return ""
	}
	if version == "dev" || daemonVersion == "dev" {
		return ""
	}
	local := strings.TrimPrefix(version, "v")
	remote := strings.TrimPrefix(daemonVersion, "v")
	if local == remote {
		return ""
	}
	return fmt.Sprintf("warning: seqlinkd %s queried a daemon running %s, restart the daemon after upgrading",
		Display(version), Display(daemonVersion))
}
