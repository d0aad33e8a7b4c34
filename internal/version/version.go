package version

import "fmt"

// Set at build time with -ldflags "-X github.com/dgallion1/text2mind/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Creator names the generator in document metadata.
const Creator = "Text2Mind"

func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}
