// Package version exposes the build version reported by the CLI and the
// gateway's /version endpoint.
package version

import "runtime/debug"

// Version is the release string for this binary. Release builds stamp it
// with -ldflags "-X .../internal/version.Version=vX.Y.Z"; unstamped builds
// fall back to the module version from the embedded build info.
var Version = "dev"

func init() {
	if Version != "dev" {
		return // stamped at link time
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	switch info.Main.Version {
	case "", "(devel)":
	default:
		Version = info.Main.Version
	}
}
