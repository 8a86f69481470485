package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionStrings(t *testing.T) {
	origRelease, origCommit := Release, GitCommit
	origOS, origArch := GOOS, GOARCH

	t.Cleanup(func() {
		Release, GitCommit = origRelease, origCommit
		GOOS, GOARCH = origOS, origArch
	})

	Release, GitCommit = "v0.3.1", "abc1234"
	GOOS, GOARCH = "linux", "amd64"

	assert.Equal(t, "v0.3.1 (commit: abc1234)", Full())
	assert.Equal(t, "v0.3.1 (commit: abc1234, linux/amd64)", FullWithPlatform())
	assert.Equal(t, "fntrace v0.3.1", Producer())
}
