// Package version exposes build metadata stamped in at link time.
//
// Release builds inject the values through -ldflags:
//
//	go build -ldflags "\
//	  -X github.com/feltworks/tablelink/internal/version.Version=0.3.0 \
//	  -X github.com/feltworks/tablelink/internal/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/feltworks/tablelink/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

// The defaults identify a local, unstamped build.
var (
	// Version is the semantic version of the release.
	Version = "dev"

	// Commit is the short git commit hash the binary was built from.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp in ISO 8601.
	BuildTime = "unknown"
)

// String formats the stamped metadata for --version output.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
