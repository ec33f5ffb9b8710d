// Package buildinfo holds the version stamped into the binary at build time:
//
//	go build -ldflags "-X github.com/matzehuels/esmstat/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/esmstat/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/esmstat/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

// Set via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the build description reported by the HTTP health check.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"built"`
}

// Current returns the build description of the running binary.
func Current() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// UserAgent identifies esmstat to the npm registry and package-list hosts,
// e.g. "esmstat/v1.2.0 (3f9c2ab)". The commit is omitted when unknown.
func UserAgent() string {
	if Commit == "" || Commit == "none" {
		return "esmstat/" + Version
	}
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("esmstat/%s (%s)", Version, commit)
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
