// Package version reports the build version stamped at link time.
package version

import "runtime/debug"

// Version is overridden by -ldflags at release builds. Module builds without
// the flag fall back to the VCS revision when one is embedded.
var Version = "dev"

func String() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 8 {
				return "dev-" + s.Value[:8]
			}
		}
	}
	return Version
}
