// Package buildinfo carries the version stamped in with -ldflags, e.g.
//
//	go build -ldflags "-X sparkrt/internal/buildinfo.Version=v0.3.0"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the version, or the commit for untagged builds.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}

// String returns a one-line banner for the boot screen and -version.
func String() string {
	return fmt.Sprintf("sparkrt %s (commit %s, built %s)", Short(), Commit, Date)
}
