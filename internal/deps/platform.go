// Package deps installs and updates the collector executable.
package deps

import (
	"runtime"
	"slices"
)

// CollectorName is the base name of the collector executable.
const CollectorName = "wakatime-cli"

// supported lists the os-arch pairs with published collector builds.
var supported = []string{
	"darwin-amd64",
	"darwin-arm64",
	"freebsd-386",
	"freebsd-amd64",
	"freebsd-arm",
	"linux-386",
	"linux-amd64",
	"linux-arm",
	"linux-arm64",
	"netbsd-386",
	"netbsd-amd64",
	"netbsd-arm",
	"openbsd-386",
	"openbsd-amd64",
	"openbsd-arm",
	"openbsd-arm64",
	"windows-386",
	"windows-amd64",
	"windows-arm64",
}

// Platform is an (os, arch) pair in collector release naming.
type Platform struct {
	OS   string
	Arch string
}

// Detect returns the platform the agent is running on.
func Detect() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

func (p Platform) String() string { return p.OS + "-" + p.Arch }

// Supported reports whether a collector build exists for p.
func (p Platform) Supported() bool {
	return slices.Contains(supported, p.String())
}

// Windows reports whether p is a Windows platform.
func (p Platform) Windows() bool { return p.OS == "windows" }

// ExecutableName is the platform-specific collector file name.
func (p Platform) ExecutableName() string {
	name := CollectorName + "-" + p.String()
	if p.Windows() {
		name += ".exe"
	}
	return name
}

// LinkName is the stable file name the dispatcher invokes.
func (p Platform) LinkName() string {
	if p.Windows() {
		return CollectorName + ".exe"
	}
	return CollectorName
}

// ArchiveName is the release asset for p.
func (p Platform) ArchiveName() string {
	return CollectorName + "-" + p.String() + ".zip"
}
