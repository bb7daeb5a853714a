// Package version carries build metadata stamped in at link time.
package version

// Overridden via -ldflags at release builds; the defaults mark a source build.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)
