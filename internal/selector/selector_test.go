package selector

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saveTree mirrors a typical game save folder.
var saveTree = map[string]string{
	"data/settings.cfg": "Some settings",
	"data/keybinds.cfg": "Keybinds",
	"save1.dat":         "Save data 1",
	"save2.dat":         "Save data 2",
}

func writeTree(t *testing.T, root string, tree map[string]string) {
	t.Helper()
	for rel, content := range tree {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestSelect_AllFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, saveTree)

	files, err := Files(root, Compile(""))
	require.NoError(t, err)
	assert.Equal(t, []string{
		hostPath("data/keybinds.cfg"),
		hostPath("data/settings.cfg"),
		"save1.dat",
		"save2.dat",
	}, files)
}

func TestSelect_IncludeExclude(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, saveTree)

	files, err := Files(root, Compile("*dat, !*save1*"))
	require.NoError(t, err)
	assert.Equal(t, []string{"save2.dat"}, files)
}

func TestSelect_MissingRootIsEmpty(t *testing.T) {
	files, err := Files(filepath.Join(t.TempDir(), "nope"), Compile(""))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSelect_RootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))

	_, err := Files(root, Compile(""))
	assert.Error(t, err)
}

func TestSelect_SkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	writeTree(t, root, map[string]string{"save.dat": "x"})
	writeTree(t, outside, map[string]string{"secret.dat": "y"})

	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.dat"), filepath.Join(root, "link.dat")))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linkdir")))

	files, err := Files(root, Compile(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"save.dat"}, files)
}

func TestSelect_Restartable(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, saveTree)

	seq := Select(root, Compile("*.cfg"))
	var first, second []string
	for rel, err := range seq {
		require.NoError(t, err)
		first = append(first, rel)
	}
	for rel, err := range seq {
		require.NoError(t, err)
		second = append(second, rel)
	}
	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestSelect_EarlyBreak(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, saveTree)

	count := 0
	for _, err := range Select(root, Compile("")) {
		require.NoError(t, err)
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestLastModified(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, saveTree)

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC)
	for rel := range saveTree {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.Chtimes(p, old, old))
	}
	require.NoError(t, os.Chtimes(filepath.Join(root, "save1.dat"), newer, newer))

	latest, err := LastModified(root, Compile(""))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(newer))

	// save1.dat is filtered out, so only the old files count
	latest, err = LastModified(root, Compile("!*save1*"))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(old))

	latest, err = LastModified(root, Compile("*.nothing"))
	require.NoError(t, err)
	assert.Nil(t, latest)
}
