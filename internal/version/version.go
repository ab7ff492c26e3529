// Package version carries the build stamp, set at link time with
// -ldflags "-X github.com/banshee-data/spectrack/internal/version.Version=...".
package version

import "fmt"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String formats the build stamp for logs and -version output.
func String() string {
	sha := GitSHA
	if len(sha) > 7 {
		sha = sha[:7]
	}
	return fmt.Sprintf("spectrack %s (%s, built %s)", Version, sha, BuildTime)
}
