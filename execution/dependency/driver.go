package dependency

import (
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/robbyt/go-jitscript/internal/helpers"
)

// DriverName identifies the compilation driver in every dependency set.
const DriverName = "github.com/robbyt/go-jitscript"

// driverDigest may be pinned at link time:
//
//	go build -ldflags "-X github.com/robbyt/go-jitscript/execution/dependency.driverDigest=<sha256 hex>"
var driverDigest string

// DriverLibrary returns the fixed dependency entry for the driver itself. When no digest was
// pinned at build time, the entry is derived from the binary's build information so that a
// rebuilt driver invalidates existing cache entries.
func DriverLibrary() Entry {
	if sum, err := helpers.ParseDigest(driverDigest); err == nil {
		return NewEntry(KindLibrary, DriverName, sum)
	}
	return NewEntry(KindLibrary, DriverName, helpers.DigestBytes([]byte(buildFingerprint())))
}

func buildFingerprint() string {
	var b strings.Builder
	b.WriteString(runtime.Version())
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b.String()
	}
	b.WriteString(" ")
	b.WriteString(info.Main.Path)
	b.WriteString("@")
	b.WriteString(info.Main.Version)
	b.WriteString(info.Main.Sum)
	for _, dep := range info.Deps {
		if dep.Path == DriverName {
			b.WriteString(" " + dep.Version + dep.Sum)
		}
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			b.WriteString(" " + setting.Value)
		}
	}
	return b.String()
}

// ModuleLibrary builds a library dependency for a Go module compiled into the binary, such as a
// compiler backend's runtime. The version recorded in the build information is hashed; when the
// module is not found, the fallback string is hashed instead.
func ModuleLibrary(name, modulePath, fallback string) Entry {
	version := fallback
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == modulePath {
				version = dep.Version + dep.Sum
				break
			}
		}
	}
	return NewEntry(KindLibrary, name, helpers.DigestBytes([]byte(modulePath+"@"+version)))
}
