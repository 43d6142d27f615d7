package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/backend/localfs"
	"github.com/savesync/savesync/internal/config"
	"github.com/savesync/savesync/internal/reconcile"
	"github.com/savesync/savesync/internal/remote"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmp := t.TempDir()
	return &config.Config{
		DataDir: filepath.Join(tmp, "data"),
		Remote:  config.Remote{Type: config.RemoteLocalFS, Folder: filepath.Join(tmp, "remote")},
	}
}

func TestOpen_LocalFS(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	c, err := Open(ctx, cfg)
	require.NoError(t, err)
	assert.FileExists(t, cfg.LockPath())
	assert.DirExists(t, cfg.Remote.Folder)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "slot.sav"), []byte("x"), 0o644))
	key, err := c.Local.Track("Celeste", root, "", "")
	require.NoError(t, err)
	require.NoError(t, c.Engine.Upload(ctx, key, false))

	require.NoError(t, c.Close())
	assert.NoFileExists(t, cfg.LockPath())
	assert.FileExists(t, cfg.RegistryPath())
	assert.FileExists(t, cfg.HistoryPath())
	assert.FileExists(t, filepath.Join(cfg.Remote.Folder, remote.DocumentName))

	c, err = Open(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()

	entries, err := c.History.List(ctx, key, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "upload", string(entries[0].Action))
}

func TestOpen_Locked(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	first, err := Open(ctx, cfg)
	require.NoError(t, err)

	_, err = Open(ctx, cfg)
	assert.ErrorIs(t, err, apperr.ErrLocked)
	assert.FileExists(t, cfg.LockPath())

	require.NoError(t, first.Close())

	second, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Remote.Folder = ""

	_, err := Open(context.Background(), cfg)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	assert.NoFileExists(t, cfg.LockPath())
}

func TestStatus_UnionOfKeys(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	fsys := afero.NewMemMapFs()

	c, err := Open(ctx, cfg, WithBackend(localfs.NewWithFs(fsys)), WithClock(clock))
	require.NoError(t, err)
	defer c.Close()

	synced := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(synced, "a.sav"), []byte("a"), 0o644))
	past := clock.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(synced, "a.sav"), past, past))

	syncedKey, err := c.Local.Track("Both Sides", synced, "", "")
	require.NoError(t, err)
	require.NoError(t, c.Engine.Upload(ctx, syncedKey, false))

	localKey, err := c.Local.Track("Local Only", t.TempDir(), "", "")
	require.NoError(t, err)
	remoteKey, err := c.Remote.RegisterNew(ctx, "Remote Only", remote.Hints{Root: "/elsewhere"})
	require.NoError(t, err)

	rows, err := c.Status(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, syncedKey, rows[0].Key)
	assert.True(t, rows[0].Tracked())
	require.NotNil(t, rows[0].Remote)
	assert.Equal(t, reconcile.ActionNone, rows[0].Action)

	assert.Equal(t, localKey, rows[1].Key)
	assert.Nil(t, rows[1].Remote)
	assert.Equal(t, reconcile.ActionNone, rows[1].Action)

	assert.Equal(t, remoteKey, rows[2].Key)
	assert.False(t, rows[2].Tracked())
	assert.Equal(t, "Remote Only", rows[2].Name)
}

func TestStatus_UnreadableRoot(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	c, err := Open(ctx, cfg, WithBackend(localfs.NewWithFs(afero.NewMemMapFs())))
	require.NoError(t, err)
	defer c.Close()

	root := filepath.Join(t.TempDir(), "slot.sav")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))
	key, err := c.Local.Track("Misconfigured", root, "", "")
	require.NoError(t, err)

	rows, err := c.Status(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, key, rows[0].Key)
	assert.True(t, rows[0].Tracked())
	assert.ErrorIs(t, rows[0].Err, apperr.ErrIO)
}
