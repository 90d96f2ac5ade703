// Package version holds build metadata, overridden at link time with
// -ldflags "-X koala/pkg/version.Version=...".
package version

var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)
