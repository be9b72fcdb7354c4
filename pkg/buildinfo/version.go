// Package buildinfo carries the release identity of the gamemap binary.
//
// Release builds stamp the variables with ldflags:
//
//	go build -ldflags "-X github.com/toucan4life/gamemap/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/toucan4life/gamemap/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/toucan4life/gamemap/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/gamemap
package buildinfo

import "fmt"

// Name identifies the client in version output and request headers.
const Name = "gamemap"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the multi-line form printed by "gamemap --version".
func String() string {
	return fmt.Sprintf("%s %s\ncommit: %s\nbuilt: %s", Name, Version, Commit, Date)
}

// Template is the cobra version template.
func Template() string {
	return String() + "\n"
}

// UserAgent is sent with every payload download, e.g. "gamemap/v0.3.0 (a1b2c3d)".
func UserAgent() string {
	if Commit == "none" {
		return Name + "/" + Version
	}
	return fmt.Sprintf("%s/%s (%s)", Name, Version, Commit)
}
