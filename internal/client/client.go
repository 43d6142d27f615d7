// Package client opens everything a savesync command works on: the data dir
// lock, the local registry, the remote store behind the configured backend,
// the history journal and the reconcile engine.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/savesync/savesync/internal/backend"
	"github.com/savesync/savesync/internal/backend/davstore"
	"github.com/savesync/savesync/internal/backend/localfs"
	"github.com/savesync/savesync/internal/backend/s3store"
	"github.com/savesync/savesync/internal/config"
	"github.com/savesync/savesync/internal/journal"
	"github.com/savesync/savesync/internal/local"
	"github.com/savesync/savesync/internal/reconcile"
	"github.com/savesync/savesync/internal/remote"
)

type Client struct {
	Config  *config.Config
	Local   *local.Registry
	Remote  *remote.Store
	History *journal.Journal
	Engine  *reconcile.Engine

	lock    *dirLock
	backend backend.Backend
	clock   clockwork.Clock
}

type Option func(*Client)

// WithBackend replaces the backend built from the config.
func WithBackend(b backend.Backend) Option {
	return func(c *Client) {
		c.backend = b
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// Open validates cfg, locks the data dir and opens the registries. Close
// releases everything.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (_ *Client, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		Config: cfg,
		lock:   newDirLock(cfg.LockPath()),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.lock.Lock(); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if cerr := c.Close(); cerr != nil {
				slog.Warn("failed to release client", "error", cerr)
			}
		}
	}()

	if c.backend == nil {
		c.backend, err = NewBackend(ctx, cfg.Remote)
		if err != nil {
			return nil, err
		}
	}

	c.Local, err = local.Open(cfg.RegistryPath())
	if err != nil {
		return nil, err
	}
	c.Remote = remote.New(c.backend)

	c.History, err = journal.Open(cfg.HistoryPath())
	if err != nil {
		return nil, err
	}

	c.Engine = reconcile.New(c.Local, c.Remote, cfg.TmpDir(),
		reconcile.WithClock(c.clock),
		reconcile.WithHistory(c.History),
	)

	slog.Debug("client open", "data_dir", cfg.DataDir, "remote", cfg.Remote.Describe())
	return c, nil
}

// Close closes the journal and releases the data dir lock.
func (c *Client) Close() error {
	var errs []error
	if c.History != nil {
		errs = append(errs, c.History.Close())
		c.History = nil
	}
	errs = append(errs, c.lock.Unlock())
	return errors.Join(errs...)
}

// NewBackend builds the backend selected by r.Type.
func NewBackend(ctx context.Context, r config.Remote) (backend.Backend, error) {
	switch r.Type {
	case config.RemoteLocalFS:
		return localfs.New(r.Folder)
	case config.RemoteS3:
		if r.S3 == nil {
			return nil, errors.New("s3 remote is not configured")
		}
		return s3store.New(ctx, r.S3)
	case config.RemoteWebDAV:
		if r.WebDAV == nil {
			return nil, errors.New("webdav remote is not configured")
		}
		return davstore.New(r.WebDAV)
	default:
		return nil, fmt.Errorf("unknown remote type %q", r.Type)
	}
}
