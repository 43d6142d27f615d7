// Package logging wires the process wide slog logger: a colored console
// handler plus an optional plain text log file.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/savesync/savesync/internal/utils"
)

const (
	FileName          = "savesync.log"
	consoleTimeFormat = "15:04:05.000"
)

type Options struct {
	// Verbose lowers the console level from warn to debug.
	Verbose bool
	// LogFile receives every record at debug level. Empty disables it.
	LogFile string
	// Console defaults to os.Stderr.
	Console io.Writer
}

// Setup installs the default logger and returns a function that flushes and
// closes the log file.
func Setup(opts Options) (func() error, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}

	consoleHandler := tint.NewHandler(console, &tint.Options{
		Level:      level,
		TimeFormat: consoleTimeFormat,
		NoColor:    !isTerminal(console),
	})

	if opts.LogFile == "" {
		slog.SetDefault(slog.New(consoleHandler))
		return func() error { return nil }, nil
	}

	if err := utils.EnsureParent(opts.LogFile); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	lines := NewLineWriter(file, nil)
	fileHandler := slog.NewTextHandler(lines, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// the line writer stamps the time
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	slog.SetDefault(slog.New(NewMultiHandler(consoleHandler, fileHandler)))

	return func() error {
		return errors.Join(lines.Close(), file.Close())
	}, nil
}

func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
