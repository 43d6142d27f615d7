package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineWriter_PrefixesCompleteLines(t *testing.T) {
	var out bytes.Buffer
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
	w := NewLineWriter(&out, clock)

	n, err := w.Write([]byte("first\nsec"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, "line=1 time=2024-05-06T07:08:09Z first\n", out.String())

	_, err = w.Write([]byte("ond\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("tail"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "line=2 time=2024-05-06T07:08:09Z second", lines[1])
	assert.Equal(t, "line=3 time=2024-05-06T07:08:09Z tail", lines[2])
}

func TestLineWriter_CloseWithoutPending(t *testing.T) {
	var out bytes.Buffer
	w := NewLineWriter(&out, nil)
	require.NoError(t, w.Close())
	assert.Empty(t, out.String())
}

func TestMultiHandler_RespectsLevels(t *testing.T) {
	var warnBuf, debugBuf bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(h).With("key", "celeste")
	logger.Debug("scanning")
	logger.Warn("conflict")

	assert.NotContains(t, warnBuf.String(), "scanning")
	assert.Contains(t, warnBuf.String(), "conflict")
	assert.Contains(t, debugBuf.String(), "scanning")
	assert.Contains(t, debugBuf.String(), "key=celeste")
}

func TestMultiHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(slog.NewTextHandler(&buf, nil))
	slog.New(h).WithGroup("remote").Info("uploaded", "size", 10)
	assert.Contains(t, buf.String(), "remote.size=10")
}

func TestSetup_WritesFileAndConsole(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", FileName)
	closeLog, err := Setup(Options{LogFile: logFile, Console: &console})
	require.NoError(t, err)

	slog.Debug("debug only in file", "key", "hades")
	slog.Warn("warn everywhere")
	require.NoError(t, closeLog())

	assert.NotContains(t, console.String(), "debug only in file")
	assert.Contains(t, console.String(), "warn everywhere")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "line=1 ")
	assert.Contains(t, string(data), `msg="debug only in file" key=hades`)
	assert.Contains(t, string(data), "warn everywhere")
}

func TestSetup_Verbose(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var console bytes.Buffer
	closeLog, err := Setup(Options{Verbose: true, Console: &console})
	require.NoError(t, err)
	defer closeLog()

	slog.Debug("walking root")
	assert.Contains(t, console.String(), "walking root")
	assert.NotContains(t, console.String(), "\x1b[")
}
