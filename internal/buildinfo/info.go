// Package buildinfo carries release metadata stamped at link time, e.g.
//
//	go build -ldflags "-X github.com/budgetanalyzer/transactions/internal/buildinfo.Version=v1.2.0"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the build for --version output.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
