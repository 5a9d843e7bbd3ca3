package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/jonny/ifremediator/pkg/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func String() string {
	return fmt.Sprintf("ifremediator %s (commit: %s, built: %s, %s)", Version, Commit, BuildTime, runtime.Version())
}
