// Package version reports the carbonledger build version.
package version

import "runtime/debug"

// Set at build time with -ldflags "-X github.com/rshade/carbonledger/pkg/version.version=...".
var (
	version   = "dev" //nolint:gochecknoglobals // Set via ldflags
	gitCommit = ""    //nolint:gochecknoglobals // Set via ldflags
	buildDate = ""    //nolint:gochecknoglobals // Set via ldflags
)

// GetVersion returns the release version, or the module version recorded
// in the build info for go install builds.
func GetVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

// GetGitCommit returns the commit the binary was built from, if known.
func GetGitCommit() string { return gitCommit }

// GetBuildDate returns the build timestamp, if known.
func GetBuildDate() string { return buildDate }
