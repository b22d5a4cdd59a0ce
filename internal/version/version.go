/*
Package version provides build information for study-advisor.

Values are set via ldflags during build:

	go build -ldflags "-X github.com/khanglvm/study-advisor/internal/version.Version=v0.3.0 \
	  -X github.com/khanglvm/study-advisor/internal/version.Commit=$(git rev-parse --short HEAD) \
	  -X github.com/khanglvm/study-advisor/internal/version.Date=$(date -u +%Y-%m-%d)"

Without ldflags the build reports "dev".
*/
package version

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the build information in a reportable form.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"built"`
}

// Current returns the build information of this binary.
func Current() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// GetVersion returns the version as one display string.
func GetVersion() string {
	return FormatVersion(Version, Commit, Date)
}

// FormatVersion formats version components into a display string.
func FormatVersion(version, commit, date string) string {
	if version == "dev" {
		return version + " (development build)"
	}
	return version + " (commit: " + commit + ", built: " + date + ")"
}

// GetVersionComponents returns the individual components.
func GetVersionComponents() (version, commit, date string) {
	return Version, Commit, Date
}
