// Package version provides build information for dashctl and the SemVer
// helpers shared by the compatibility evaluator and the release resolver.
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables set via ldflags.
var (
	// Version is the CLI version (set via ldflags).
	Version = "v0.0.0-dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"

	// IntegrationVersion is the integration release this binary ships with.
	// It is the default running version for compatibility checks and can be
	// overridden by config (integration.version).
	IntegrationVersion = "0.5.0-beta.5"
)

// Info contains version information.
type Info struct {
	// Version is the CLI version (set via ldflags).
	Version string `json:"version"`

	// GitCommit is the git commit hash.
	GitCommit string `json:"gitCommit"`

	// BuildDate is the build timestamp.
	BuildDate string `json:"buildDate"`

	// GoVersion is the Go version used to build.
	GoVersion string `json:"goVersion"`

	// IntegrationVersion is the bundled integration version.
	IntegrationVersion string `json:"integrationVersion"`
}

// GetInfo returns the current version information.
func GetInfo() Info {
	return Info{
		Version:            Version,
		GitCommit:          GitCommit,
		BuildDate:          BuildDate,
		GoVersion:          runtime.Version(),
		IntegrationVersion: IntegrationVersion,
	}
}

// String returns a human-readable version string.
func (i Info) String() string {
	return fmt.Sprintf("dashctl:\n  Version:  %s\n  Build ID: %s/%s\n  Go:       %s\n\nIntegration:\n  Version:  %s",
		i.Version, i.BuildDate, i.GitCommit, i.GoVersion, i.IntegrationVersion)
}
