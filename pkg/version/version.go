package version

import "fmt"

// Set via ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns the full version line
func String() string {
	return fmt.Sprintf("strata %s (commit %s, built %s)", Version, Commit, BuildTime)
}
