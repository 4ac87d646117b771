package config

import "runtime/debug"

// Version is set at build time:
//
//	-ldflags "-X github.com/persistorai/depthcue/internal/config.Version=<tag>"
var Version = ""

// BuildVersion returns Version, else the module version recorded by
// `go install`, else "dev".
func BuildVersion() string {
	if Version != "" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	return "dev"
}
