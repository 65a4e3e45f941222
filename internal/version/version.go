// Package version holds the build version string.
package version

// Version is overridden at build time via
// -ldflags "-X github.com/virtops/vmtree/internal/version.Version=...".
var Version = "dev"
