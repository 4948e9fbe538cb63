// Command rangescan scans an IP address range for open TCP ports.
package main

import "github.com/anstrom/rangescan/cmd/cli"

// Build information, set via -ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
