package version

import "fmt"

var (
	// Version is the semantic version of the binary. Overridden via -ldflags "-X".
	Version = "0.3.0"
	// Commit is the git commit hash injected at build time.
	Commit = "dev"
	// BuildDate is the build timestamp injected at build time.
	BuildDate = "unknown"
)

// Full returns a human-friendly version string.
func Full() string {
	return fmt.Sprintf("ultratune %s (commit:%s, built:%s)", Version, Commit, BuildDate)
}

// UserAgent identifies the daemon client in outgoing requests.
func UserAgent() string {
	return "ultratune/" + Version
}
