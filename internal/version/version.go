// Package version exposes build metadata stamped in at link time, e.g.
//
//	go build -ldflags "-X github.com/kailas-cloud/nlquery/internal/version.Version=v0.3.0"
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
