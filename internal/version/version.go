// Package version holds build metadata and the product identity shown in
// the About dialog.
package version

import (
	"fmt"
	"runtime"
)

// Product identity.
const (
	ProductName = "B-Transfer"
	Tagline     = "Military-Grade File Transfer"
	Company     = "Balsim Technologies"
	Copyright   = "Copyright (c) 2025 Balsim Technologies. All rights reserved."
)

var (
	// Version is the application version, set via ldflags during build.
	Version = "2.3.0"
	// GitCommit is the git commit hash, set via ldflags during build.
	GitCommit = "unknown"
	// BuildDate is the build timestamp, set via ldflags during build.
	BuildDate = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the product name and version, e.g. "B-Transfer v2.3.0".
func String() string {
	return fmt.Sprintf("%s v%s", ProductName, Version)
}

// Title is the main window title.
func Title() string {
	return ProductName + " - " + Tagline
}
