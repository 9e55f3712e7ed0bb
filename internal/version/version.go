// Package version holds build information for cedx.
package version

// Overridden at build time:
// go build -ldflags "-X cedx/internal/version.Version=1.0.0 -X cedx/internal/version.Commit=abc123"
var (
	// Version is the semantic version of cedx
	Version = "0.4.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// PackageFormat identifies the logical item graph layout written by this build.
// Bumped whenever Item or Package gain or lose fields.
const PackageFormat = 2

// Info returns a formatted version string
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "cedx version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}
