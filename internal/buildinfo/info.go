// Package buildinfo carries the version identity stamped in at link time.
package buildinfo

import "fmt"

// Overridden via -ldflags "-X" on release builds; the defaults mark a
// local development binary.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// BuildString is the one-line version identity shown by --version.
func BuildString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
