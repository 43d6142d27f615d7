package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionStrings_NonEmptyAndContainParts(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, Revision)
	assert.Equal(t, "SaveSync", AppName)

	short := Short()
	assert.Contains(t, short, Version)
	assert.Contains(t, short, Revision)

	shortApp := ShortWithApp()
	assert.True(t, strings.HasPrefix(shortApp, AppName+" "))

	detailed := Detailed()
	assert.Contains(t, detailed, Version)
	assert.Contains(t, detailed, Revision)
	assert.Contains(t, detailed, "/") // GOOS/GOARCH part

	assert.True(t, strings.HasPrefix(UserAgent(), "SaveSync/"))
}

func TestApplyBuildInfo(t *testing.T) {
	oldVersion, oldRevision, oldDate := Version, Revision, BuildDate
	t.Cleanup(func() {
		Version, Revision, BuildDate = oldVersion, oldRevision, oldDate
	})

	Version, Revision, BuildDate = devVersion, "HEAD", ""
	applyBuildInfo("v1.2.3", map[string]string{
		"vcs.revision": "0123456789abcdef0123",
		"vcs.modified": "true",
		"vcs.time":     "2025-01-02T03:04:05Z",
	})

	assert.Equal(t, "1.2.3", Version)
	assert.Equal(t, "0123456789ab-dirty", Revision)
	assert.Equal(t, "2025-01-02T03:04:05Z", BuildDate)
}

func TestApplyBuildInfo_KeepsLdflags(t *testing.T) {
	oldVersion, oldRevision, oldDate := Version, Revision, BuildDate
	t.Cleanup(func() {
		Version, Revision, BuildDate = oldVersion, oldRevision, oldDate
	})

	Version, Revision, BuildDate = "2.0.0", "abc123", "today"
	applyBuildInfo("(devel)", map[string]string{"vcs.revision": "ffff"})

	assert.Equal(t, "2.0.0", Version)
	assert.Equal(t, "abc123", Revision)
	assert.Equal(t, "today", BuildDate)
}
