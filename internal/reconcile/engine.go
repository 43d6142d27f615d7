package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/archive"
	"github.com/savesync/savesync/internal/journal"
	"github.com/savesync/savesync/internal/local"
	"github.com/savesync/savesync/internal/names"
	"github.com/savesync/savesync/internal/remote"
	"github.com/savesync/savesync/internal/utils"
)

// History receives an entry for every transfer, conflict and failure.
type History interface {
	Record(ctx context.Context, e journal.Entry) error
	RenameKey(ctx context.Context, oldKey, newKey string) error
}

// Result is the outcome of reconciling one save.
type Result struct {
	Key    string
	Name   string
	Action Action
	State  State
	Err    error
}

type Engine struct {
	local   *local.Registry
	remote  *remote.Store
	tmpDir  string
	clock   clockwork.Clock
	history History
}

type Option func(*Engine)

func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

func WithHistory(h History) Option {
	return func(e *Engine) {
		e.history = h
	}
}

// New returns an engine that stages archives in tmpDir.
func New(localReg *local.Registry, remoteStore *remote.Store, tmpDir string, opts ...Option) *Engine {
	e := &Engine{
		local:  localReg,
		remote: remoteStore,
		tmpDir: tmpDir,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State collects the timestamps of the local and remote copy of key.
func (e *Engine) State(ctx context.Context, key string) (State, error) {
	save, err := e.local.Get(key)
	if err != nil {
		return State{}, err
	}
	return e.stateOf(ctx, save)
}

func (e *Engine) stateOf(ctx context.Context, save local.Save) (State, error) {
	state, err := LocalState(save)
	if err != nil {
		return State{}, err
	}

	rs, err := e.remote.Get(ctx, save.Key)
	if errors.Is(err, apperr.ErrNotFound) {
		return state, nil
	}
	if err != nil {
		return State{}, err
	}
	state.RemoteUpload = rs.LastUpload
	return state, nil
}

// LocalState is the local half of a save's state. It fails when the root
// could not be scanned, so no action is derived from an unreadable folder.
func LocalState(save local.Save) (State, error) {
	if save.ScanErr != nil {
		return State{}, fmt.Errorf("scan %s: %w", save.Name, save.ScanErr)
	}
	return State{
		LocalModified: save.LastModified,
		LastSync:      save.LastSync,
		SyncedFiles:   save.SyncedFiles,
	}, nil
}

// Sync decides and performs the action for key. A conflict is not an error;
// it is reported through the result and leaves both copies untouched.
func (e *Engine) Sync(ctx context.Context, key string) (Result, error) {
	save, err := e.local.Get(key)
	if err != nil {
		return Result{Key: key}, err
	}

	res := Result{Key: key, Name: save.Name}
	res.State, err = e.stateOf(ctx, save)
	if err != nil {
		return res, err
	}
	res.Action = Decide(res.State)

	switch res.Action {
	case ActionUpload:
		err = e.upload(ctx, save)
	case ActionDownload:
		err = e.download(ctx, save)
	case ActionConflict:
		slog.Warn("save changed on both sides, refusing to sync", "key", key,
			"last_modified", res.State.LocalModified, "last_sync", res.State.LastSync,
			"remote_upload", res.State.RemoteUpload)
		e.record(ctx, key, journal.ActionConflict, conflictDetail(res.State))
	default:
		slog.Debug("save up to date", "key", key)
	}

	if err != nil {
		res.Err = err
		e.record(ctx, key, journal.ActionFailed, fmt.Sprintf("%s: %v", res.Action, err))
	}
	return res, err
}

// SyncAll syncs each key on its own. A failure or conflict on one key does not
// stop the others; every key gets a result. Cancelling ctx skips the keys not
// yet started.
func (e *Engine) SyncAll(ctx context.Context, keys []string) []Result {
	results := make([]Result, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Key: key, Err: err})
			continue
		}
		res, err := e.Sync(ctx, key)
		if err != nil {
			res.Err = err
			slog.Error("sync failed", "key", key, "error", err)
		}
		results = append(results, res)
	}
	return results
}

// Upload sends the local copy of key. Unless forced it refuses when the
// remote changed since the last sync or nothing changed locally.
func (e *Engine) Upload(ctx context.Context, key string, force bool) error {
	save, err := e.local.Get(key)
	if err != nil {
		return err
	}

	if !force {
		state, err := e.stateOf(ctx, save)
		if err != nil {
			return err
		}
		if state.RemoteUpdated() {
			return fmt.Errorf("%w: %s was uploaded %s, after the last sync", apperr.ErrRemoteChanged,
				save.Name, humanize.Time(*state.RemoteUpload))
		}
		if !state.LocalUpdated() {
			return fmt.Errorf("%w: local files of %s", apperr.ErrUnchanged, save.Name)
		}
	}

	if err := e.upload(ctx, save); err != nil {
		e.record(ctx, key, journal.ActionFailed, fmt.Sprintf("upload: %v", err))
		return err
	}
	return nil
}

// Download restores the remote copy of key. Unless forced it refuses when
// local files changed since the last sync or the remote did not change.
func (e *Engine) Download(ctx context.Context, key string, force bool) error {
	save, err := e.local.Get(key)
	if err != nil {
		return err
	}

	rs, err := e.remote.Get(ctx, key)
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("%w: %s is not in remote storage", apperr.ErrNotUploaded, save.Name)
	}
	if err != nil {
		return err
	}
	if !rs.Uploaded() {
		return fmt.Errorf("%w: %s", apperr.ErrNotUploaded, save.Name)
	}

	if !force {
		state, err := LocalState(save)
		if err != nil {
			return err
		}
		state.RemoteUpload = rs.LastUpload
		if state.LocalUpdated() {
			return fmt.Errorf("%w: %s was modified %s, after the last sync", apperr.ErrLocalChanged,
				save.Name, humanize.Time(*state.LocalModified))
		}
		if !state.RemoteUpdated() && !state.LocalMissing() {
			return fmt.Errorf("%w: remote copy of %s", apperr.ErrUnchanged, save.Name)
		}
	}

	if err := e.download(ctx, save); err != nil {
		e.record(ctx, key, journal.ActionFailed, fmt.Sprintf("download: %v", err))
		return err
	}
	return nil
}

func (e *Engine) upload(ctx context.Context, save local.Save) error {
	key := save.Key
	slog.Info("uploading save", "key", key, "root", save.Root)

	has, err := e.remote.Has(ctx, key)
	if err != nil {
		return err
	}
	if !has {
		hints := remote.Hints{Root: save.Root, Filter: save.Filter, Version: save.Version}
		if _, err := e.remote.RegisterNew(ctx, save.Name, hints); err != nil {
			return fmt.Errorf("register remote save: %w", err)
		}
	}

	files, err := save.Files()
	if err != nil {
		return fmt.Errorf("select files: %w", err)
	}

	tmp, err := e.tempArtifact(key)
	if err != nil {
		return err
	}
	defer removeTemp(tmp)

	if err := archive.Pack(save.Root, files, tmp); err != nil {
		return fmt.Errorf("pack %s: %w", key, err)
	}

	now := e.clock.Now().UTC()
	if err := e.remote.Upload(ctx, key, tmp, now); err != nil {
		return err
	}
	if _, err := e.local.Edit(key, local.Edit{LastSync: &now, SyncedFiles: len(files)}); err != nil {
		return err
	}

	detail := fmt.Sprintf("%d files", len(files))
	if rs, err := e.remote.Get(ctx, key); err == nil {
		detail += ", " + humanize.Bytes(uint64(rs.Size))
	}
	e.record(ctx, key, journal.ActionUpload, detail)
	slog.Info("save uploaded", "key", key, "files", len(files))
	return nil
}

func (e *Engine) download(ctx context.Context, save local.Save) error {
	key := save.Key
	slog.Info("downloading save", "key", key, "root", save.Root)

	tmp, err := e.tempArtifact(key)
	if err != nil {
		return err
	}
	defer removeTemp(tmp)

	if err := e.remote.Load(ctx, key, tmp); err != nil {
		return err
	}
	if err := archive.Unpack(tmp, save.Root); err != nil {
		return fmt.Errorf("unpack %s: %w", key, err)
	}

	files, err := save.Files()
	if err != nil {
		return fmt.Errorf("select files: %w", err)
	}
	if len(files) == 0 {
		slog.Warn("downloaded archive holds no files the filter selects", "key", key, "filter", save.Filter)
	}

	now := e.clock.Now().UTC()
	if _, err := e.local.Edit(key, local.Edit{LastSync: &now, SyncedFiles: len(files)}); err != nil {
		return err
	}

	e.record(ctx, key, journal.ActionDownload, save.Root)
	slog.Info("save downloaded", "key", key)
	return nil
}

// Edit changes a tracked save and, unless localOnly, carries the change over
// to its remote entry. The version is only carried over while both copies
// are in step, since it describes the uploaded files. The remote entry is
// changed first and restored if the local commit fails, so both sides keep
// the same key.
func (e *Engine) Edit(ctx context.Context, key string, edit local.Edit, localOnly bool) (string, error) {
	before, err := e.local.Get(key)
	if err != nil {
		return "", err
	}

	var rs *remote.Save
	if !localOnly {
		got, err := e.remote.Get(ctx, key)
		switch {
		case err == nil:
			rs = &got
		case !errors.Is(err, apperr.ErrNotFound):
			return "", err
		}
	}

	// fail before touching anything when a rename would collide
	if edit.Name != nil {
		newKey := names.Normalize(*edit.Name)
		if newKey == "" {
			return "", fmt.Errorf("%w: save name %q has no letters or digits", apperr.ErrInvalid, *edit.Name)
		}
		if newKey != key {
			if e.local.Has(newKey) {
				return "", apperr.AlreadyExists(newKey)
			}
			if rs != nil {
				taken, err := e.remote.Has(ctx, newKey)
				if err != nil {
					return "", err
				}
				if taken {
					return "", fmt.Errorf("remote: %w", apperr.AlreadyExists(newKey))
				}
			}
		}
	}

	var re remote.Edit
	if rs != nil {
		re = remote.Edit{Name: edit.Name, FilterHint: edit.Filter}
		if edit.Root != nil {
			root, err := utils.ResolvePath(*edit.Root)
			if err != nil {
				return "", fmt.Errorf("%w: resolve root %q: %w", apperr.ErrInvalid, *edit.Root, err)
			}
			re.RootHint = &root
		}
		if edit.Version != nil {
			if sameTime(rs.LastUpload, before.LastSync) {
				re.Version = edit.Version
			} else {
				slog.Info("remote copy differs from local, keeping remote version", "key", key)
			}
		}
	}

	remoteKey := key
	if re != (remote.Edit{}) {
		remoteKey, err = e.remote.Edit(ctx, key, re)
		if err != nil {
			return "", fmt.Errorf("remote update failed, nothing was changed: %w", err)
		}
	}

	newKey, err := e.local.Edit(key, edit)
	if err != nil {
		if re != (remote.Edit{}) {
			e.restoreRemote(ctx, remoteKey, *rs)
		}
		return "", err
	}
	if newKey != key {
		e.renameHistory(ctx, key, newKey)
		e.record(ctx, newKey, journal.ActionRename, key+" -> "+newKey)
	}
	return newKey, nil
}

// restoreRemote puts a remote entry now stored under key back to saved.
func (e *Engine) restoreRemote(ctx context.Context, key string, saved remote.Save) {
	undo := remote.Edit{
		Name:       &saved.Name,
		RootHint:   &saved.RootHint,
		FilterHint: &saved.FilterHint,
		Version:    &saved.Version,
	}
	if _, err := e.remote.Edit(context.WithoutCancel(ctx), key, undo); err != nil {
		slog.Error("failed to restore remote save, rename it back with remote edit",
			"key", key, "name", saved.Name, "error", err)
	}
}

// EditRemote changes a remote entry only.
func (e *Engine) EditRemote(ctx context.Context, key string, edit remote.Edit) (string, error) {
	newKey, err := e.remote.Edit(ctx, key, edit)
	if err != nil {
		return "", err
	}
	if newKey != key {
		e.record(ctx, newKey, journal.ActionRename, "remote "+key+" -> "+newKey)
	}
	return newKey, nil
}

// DeleteRemote removes the remote entry and its artifact.
func (e *Engine) DeleteRemote(ctx context.Context, key string) error {
	if err := e.remote.Delete(ctx, key); err != nil {
		return err
	}
	e.record(ctx, key, journal.ActionDelete, "remote")
	return nil
}

// AdoptOptions override the hints of a remote save when it is tracked
// locally. Nil fields keep the hint.
type AdoptOptions struct {
	Root    *string
	Filter  *string
	Version *string
}

// Adopt tracks a save that so far only exists remotely and returns its key.
func (e *Engine) Adopt(ctx context.Context, query string, opts AdoptOptions) (string, error) {
	rkey, err := e.remote.Find(ctx, query)
	if err != nil {
		return "", err
	}
	rs, err := e.remote.Get(ctx, rkey)
	if err != nil {
		return "", err
	}

	root, filter, version := rs.RootHint, rs.FilterHint, rs.Version
	if opts.Root != nil {
		root = *opts.Root
	}
	if opts.Filter != nil {
		filter = *opts.Filter
	}
	if opts.Version != nil {
		version = *opts.Version
	}
	if root == "" {
		return "", fmt.Errorf("%w: %s has no root hint, pass a root folder", apperr.ErrInvalid, rs.Name)
	}

	return e.local.Track(rs.Name, root, filter, version)
}

func (e *Engine) tempArtifact(key string) (string, error) {
	if err := utils.EnsureDir(e.tmpDir); err != nil {
		return "", fmt.Errorf("%w: create temp dir: %w", apperr.ErrIO, err)
	}
	return filepath.Join(e.tmpDir, key+"-"+uuid.NewString()+".zip"), nil
}

func (e *Engine) record(ctx context.Context, key string, action journal.Action, detail string) {
	if e.history == nil {
		return
	}
	entry := journal.Entry{Key: key, Action: action, Detail: detail, Time: e.clock.Now()}
	// a cancelled command still gets its history line
	if err := e.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("failed to record history", "key", key, "action", action, "error", err)
	}
}

func (e *Engine) renameHistory(ctx context.Context, oldKey, newKey string) {
	if e.history == nil {
		return
	}
	if err := e.history.RenameKey(context.WithoutCancel(ctx), oldKey, newKey); err != nil {
		slog.Warn("failed to move history", "from", oldKey, "to", newKey, "error", err)
	}
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to remove temp artifact", "path", path, "error", err)
	}
}

func conflictDetail(s State) string {
	return fmt.Sprintf("modified %s, last sync %s, remote upload %s",
		formatTime(s.LocalModified), formatTime(s.LastSync), formatTime(s.RemoteUpload))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateTime)
}
