package logging

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// LineWriter prefixes every complete line written to it with a sequence
// number and a timestamp. A trailing partial line is held back until its
// newline arrives or Close is called.
type LineWriter struct {
	mu     sync.Mutex
	target io.Writer
	clock  clockwork.Clock
	seq    uint64
	buf    bytes.Buffer
}

func NewLineWriter(target io.Writer, clock clockwork.Clock) *LineWriter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LineWriter{target: target, clock: clock}
}

// Write implements io.Writer. It reports len(p) on success since the prefixes
// are not part of the caller's data.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		idx := bytes.IndexByte(w.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := w.buf.Next(idx + 1)
		if err := w.writeLine(line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Close flushes a pending partial line.
func (w *LineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() == 0 {
		return nil
	}
	line := append(w.buf.Bytes(), '\n')
	w.buf.Reset()
	return w.writeLine(line)
}

func (w *LineWriter) writeLine(line []byte) error {
	w.seq++
	prefix := slog.Uint64("line", w.seq).String() + " " +
		slog.String("time", w.clock.Now().Format(time.RFC3339)).String() + " "
	if _, err := io.WriteString(w.target, prefix); err != nil {
		return err
	}
	_, err := w.target.Write(line)
	return err
}
