// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. Set manually for releases.
	Version = "0.1.0-dev"
)

// StoreFormat is the version of the on-disk store layout and record
// encoding. Bumped on incompatible changes.
const StoreFormat = 1

// commitLength is how much of a VCS revision Commit shows.
const commitLength = 12

// Commit returns the git commit, falling back to the toolchain's VCS
// stamp with a "+dirty" suffix for modified trees.
func Commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return GitCommit
	}
	var revision, modified string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		}
	}
	if revision == "" {
		return GitCommit
	}
	if len(revision) > commitLength {
		revision = revision[:commitLength]
	}
	if modified == "true" {
		revision += "+dirty"
	}
	return revision
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit(), BuildTime)
}

// Full returns detailed version information.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s\n  Store format: %d",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH, StoreFormat)
}

// Short returns just the version number.
func Short() string {
	return Version
}
