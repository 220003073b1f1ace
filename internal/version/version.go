// Package version carries build identification, set via ldflags.
package version

import "fmt"

var (
	// Version is the current toolkit version.
	Version = "dev"
	// GitSHA is the git commit SHA.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String returns a single-line build description.
func String() string {
	return fmt.Sprintf("sitsi %s (%s, built %s)", Version, GitSHA, BuildTime)
}
