// Package buildinfo carries version data stamped at link time:
//
//	go build -ldflags "-X github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/buildinfo.Version=v1.2.3"
package buildinfo

var (
	Version   = "dev"
	Revision  = "unknown"
	BuildDate = "unknown"
)
