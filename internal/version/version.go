package version

import "github.com/fatih/color"

// Build information for cexd.
// These variables can be overridden at build time via -ldflags.
var (
	// Version is the semantic version. It also salts result-cache keys, so a
	// new release never serves results cached by an older one.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	restColor  = color.New(color.FgGreen)
)

// Colored renders Version for terminals: the major component highlighted.
func Colored() string {
	for i := 0; i < len(Version); i++ {
		if Version[i] == '.' {
			return majorColor.Sprint(Version[:i]) + restColor.Sprint(Version[i:])
		}
	}
	return majorColor.Sprint(Version)
}

// CacheSalt is the salt for fingerprints of compile requests.
func CacheSalt() string {
	if GitCommit != "" {
		return Version + "+" + GitCommit
	}
	return Version
}
