package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	Version, Commit, BuildTime = "1.2.0", "abc1234", "2026-01-01T00:00:00Z"
	t.Cleanup(func() { Version, Commit, BuildTime = "dev", "unknown", "unknown" })

	got := String()
	for _, want := range []string{"ifremediator 1.2.0", "commit: abc1234", "built: 2026-01-01T00:00:00Z", "go"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
