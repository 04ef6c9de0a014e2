// Package version carries build metadata injected at link time.
package version

import "fmt"

var (
	// Version is set via -ldflags at build time.
	Version = "dev"
	// Commit is the short git revision, set via -ldflags.
	Commit = "unknown"
	// BuildDate is set via -ldflags.
	BuildDate = "unknown"
)

const appName = "toribot"

// Short returns the bare semantic version.
func Short() string {
	return Version
}

// Full returns a user-facing build string.
func Full() string {
	if Version == "dev" {
		return fmt.Sprintf("%s %s (%s, built %s)", appName, Version, Commit, BuildDate)
	}
	return fmt.Sprintf("%s %s", appName, Version)
}
