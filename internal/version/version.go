// Package version carries build identification, stamped via -ldflags.
package version

var (
	// Version is the gridseis release version.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
