package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	j := setupJournal(t)
	base := time.Date(2024, 4, 1, 12, 0, 0, 123, time.UTC)

	require.NoError(t, j.Record(ctx, Entry{Key: "celeste", Action: ActionUpload, Detail: "2.1 kB", Time: base}))
	require.NoError(t, j.Record(ctx, Entry{Key: "hades", Action: ActionConflict, Time: base.Add(time.Minute)}))
	require.NoError(t, j.Record(ctx, Entry{Key: "celeste", Action: ActionDownload, Time: base.Add(2 * time.Minute)}))

	all, err := j.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ActionDownload, all[0].Action)
	assert.Equal(t, "hades", all[1].Key)
	assert.Equal(t, "2.1 kB", all[2].Detail)
	assert.True(t, base.Equal(all[2].Time))

	celeste, err := j.List(ctx, "celeste", 10)
	require.NoError(t, err)
	require.Len(t, celeste, 2)
	assert.Equal(t, ActionDownload, celeste[0].Action)
	assert.Equal(t, ActionUpload, celeste[1].Action)

	limited, err := j.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRenameKey(t *testing.T) {
	ctx := context.Background()
	j := setupJournal(t)

	require.NoError(t, j.Record(ctx, Entry{Key: "old", Action: ActionUpload, Time: time.Now()}))
	require.NoError(t, j.RenameKey(ctx, "old", "new"))

	old, err := j.List(ctx, "old", 0)
	require.NoError(t, err)
	assert.Empty(t, old)

	renamed, err := j.List(ctx, "new", 0)
	require.NoError(t, err)
	assert.Len(t, renamed, 1)
}

func TestOpen_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, Entry{Key: "celeste", Action: ActionUpload, Time: time.Now()}))
	require.NoError(t, j.Close())
	assert.Error(t, j.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	entries, err := reopened.List(ctx, "celeste", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
