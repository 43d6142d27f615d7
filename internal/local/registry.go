// Package local is the catalog of saves tracked on this machine. The whole
// catalog lives in one JSON document that is rewritten after every mutation.
package local

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/codec"
	"github.com/savesync/savesync/internal/names"
	"github.com/savesync/savesync/internal/selector"
	"github.com/savesync/savesync/internal/utils"
)

const (
	FormatVersion = 1
	DocumentName  = "registry.json"
)

// Save is one tracked save directory.
type Save struct {
	Key      string     `json:"-"`
	Name     string     `json:"name"`
	Root     string     `json:"root"`
	Filter   string     `json:"filter"`
	Version  string     `json:"version,omitempty"`
	LastSync *time.Time `json:"last_sync,omitempty"`
	// SyncedFiles is how many files the filter selected when LastSync was
	// stamped.
	SyncedFiles int `json:"synced_files,omitempty"`

	// LastModified is the newest mtime among the selected files. It is
	// recomputed from disk and never persisted.
	LastModified *time.Time `json:"-"`
	// ScanErr is set when the root could not be scanned. LastModified is
	// meaningless then.
	ScanErr error `json:"-"`
}

// Files lists the files currently selected by the save's filter.
func (s *Save) Files() ([]string, error) {
	return selector.Files(s.Root, selector.Compile(s.Filter))
}

// Edit carries the fields to change on a tracked save. Nil fields are left
// untouched.
type Edit struct {
	Name     *string
	Root     *string
	Filter   *string
	Version  *string
	LastSync *time.Time
	// SyncedFiles is only applied together with LastSync.
	SyncedFiles int
}

type document struct {
	Version int              `json:"version"`
	Saves   map[string]*Save `json:"saves"`
}

type Registry struct {
	path  string
	saves map[string]*Save
}

// Open loads the registry document at path. A missing document is an empty
// registry; it is created on the first mutation.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path, saves: map[string]*Save{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("local registry not found, starting empty", "path", path)
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read local registry: %w", apperr.ErrIO, err)
	}

	var doc document
	if err := codec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse local registry %s: %w", apperr.ErrDecode, path, err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("%w: local registry %s has version %d, expected %d",
			apperr.ErrFormatVersion, path, doc.Version, FormatVersion)
	}

	for key, save := range doc.Saves {
		if save == nil {
			continue
		}
		save.Key = key
		refresh(save)
		r.saves[key] = save
	}

	slog.Debug("local registry loaded", "path", path, "saves", len(r.saves))
	return r, nil
}

// Path is the location of the registry document.
func (r *Registry) Path() string {
	return r.path
}

// Track adds a new save and returns its key.
func (r *Registry) Track(name, root, filter, version string) (string, error) {
	key := names.Normalize(name)
	if key == "" {
		return "", fmt.Errorf("%w: save name %q has no letters or digits", apperr.ErrInvalid, name)
	}
	if _, ok := r.saves[key]; ok {
		return "", apperr.AlreadyExists(key)
	}

	absRoot, err := resolveRoot(root)
	if err != nil {
		return "", err
	}

	save := &Save{
		Key:     key,
		Name:    name,
		Root:    absRoot,
		Filter:  filter,
		Version: version,
	}
	refresh(save)

	saves := maps.Clone(r.saves)
	saves[key] = save
	if err := r.commit(saves); err != nil {
		return "", err
	}

	slog.Info("save tracked", "key", key, "root", absRoot, "filter", filter)
	return key, nil
}

// Edit applies e to the save stored under key and returns the save's key
// afterwards, which differs from key when the name changed.
func (r *Registry) Edit(key string, e Edit) (string, error) {
	current, ok := r.saves[key]
	if !ok {
		return "", apperr.NotFound(key)
	}

	updated := *current
	if e.Name != nil {
		newKey := names.Normalize(*e.Name)
		if newKey == "" {
			return "", fmt.Errorf("%w: save name %q has no letters or digits", apperr.ErrInvalid, *e.Name)
		}
		if _, taken := r.saves[newKey]; taken && newKey != key {
			return "", apperr.AlreadyExists(newKey)
		}
		updated.Key = newKey
		updated.Name = *e.Name
	}
	if e.Root != nil {
		absRoot, err := resolveRoot(*e.Root)
		if err != nil {
			return "", err
		}
		updated.Root = absRoot
	}
	if e.Filter != nil {
		updated.Filter = *e.Filter
	}
	if e.Version != nil {
		updated.Version = *e.Version
	}
	if e.LastSync != nil {
		ts := *e.LastSync
		updated.LastSync = &ts
		updated.SyncedFiles = e.SyncedFiles
	}
	refresh(&updated)

	saves := maps.Clone(r.saves)
	delete(saves, key)
	saves[updated.Key] = &updated
	if err := r.commit(saves); err != nil {
		return "", err
	}

	if updated.Key != key {
		slog.Info("save renamed", "from", key, "to", updated.Key)
	}
	return updated.Key, nil
}

// Untrack forgets the save. Files on disk are left alone.
func (r *Registry) Untrack(key string) error {
	if _, ok := r.saves[key]; !ok {
		return apperr.NotFound(key)
	}

	saves := maps.Clone(r.saves)
	delete(saves, key)
	if err := r.commit(saves); err != nil {
		return err
	}

	slog.Info("save untracked", "key", key)
	return nil
}

// Get returns a copy of the save stored under key.
func (r *Registry) Get(key string) (Save, error) {
	save, ok := r.saves[key]
	if !ok {
		return Save{}, apperr.NotFound(key)
	}
	return *save, nil
}

// Has reports whether key is tracked.
func (r *Registry) Has(key string) bool {
	_, ok := r.saves[key]
	return ok
}

// Keys returns all keys in sorted order.
func (r *Registry) Keys() []string {
	return slices.Sorted(maps.Keys(r.saves))
}

// List returns copies of all saves sorted by key.
func (r *Registry) List() []Save {
	out := make([]Save, 0, len(r.saves))
	for _, key := range r.Keys() {
		out = append(out, *r.saves[key])
	}
	return out
}

// Find resolves a user query to a single key.
func (r *Registry) Find(query string) (string, error) {
	return names.Find(r.Keys(), query, func(key string) string {
		return r.saves[key].Name
	})
}

func (r *Registry) commit(saves map[string]*Save) error {
	data, err := codec.MarshalDocument(document{Version: FormatVersion, Saves: saves})
	if err != nil {
		return fmt.Errorf("encode local registry: %w", err)
	}
	if err := utils.WriteFileAtomic(r.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write local registry: %w", apperr.ErrIO, err)
	}
	r.saves = saves
	return nil
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("%w: save root cannot be empty", apperr.ErrInvalid)
	}
	abs, err := utils.ResolvePath(root)
	if err != nil {
		return "", fmt.Errorf("%w: resolve root %q: %w", apperr.ErrInvalid, root, err)
	}
	return abs, nil
}

func refresh(save *Save) {
	latest, err := selector.LastModified(save.Root, selector.Compile(save.Filter))
	if err != nil {
		slog.Warn("failed to scan save root", "key", save.Key, "root", save.Root, "error", err)
		save.LastModified = nil
		save.ScanErr = err
		return
	}
	save.LastModified = latest
	save.ScanErr = nil
}
