// Package remote is the catalog of uploaded saves. The catalog document and
// one zip artifact per save live behind a storage backend.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/backend"
	"github.com/savesync/savesync/internal/codec"
	"github.com/savesync/savesync/internal/names"
)

const (
	FormatVersion = 1
	DocumentName  = "registry.json"
	artifactExt   = ".zip"
)

// Save is one entry of the remote catalog.
type Save struct {
	Key        string     `json:"-"`
	Name       string     `json:"name"`
	LastUpload *time.Time `json:"last_upload,omitempty"`
	Size       int64      `json:"size"`
	RootHint   string     `json:"root_hint,omitempty"`
	FilterHint string     `json:"filter_hint,omitempty"`
	Version    string     `json:"version,omitempty"`
}

// Uploaded reports whether an artifact is stored for the save.
func (s *Save) Uploaded() bool {
	return s.LastUpload != nil
}

// Hints pre-fill a local save when the remote save is adopted on another
// machine.
type Hints struct {
	Root    string
	Filter  string
	Version string
}

// Edit carries the fields to change on a remote save. Nil fields are left
// untouched.
type Edit struct {
	Name       *string
	RootHint   *string
	FilterHint *string
	Version    *string
}

type document struct {
	Version int              `json:"version"`
	Saves   map[string]*Save `json:"saves"`
}

type Store struct {
	backend backend.Backend

	// nil until the document has been read
	saves map[string]*Save
}

func New(b backend.Backend) *Store {
	return &Store{backend: b}
}

// ArtifactName is the backend name of the artifact stored for key.
func ArtifactName(key string) string {
	return key + artifactExt
}

// RegisterNew adds an entry without an artifact and returns its key.
func (s *Store) RegisterNew(ctx context.Context, name string, hints Hints) (string, error) {
	if err := s.load(ctx); err != nil {
		return "", err
	}

	key := names.Normalize(name)
	if key == "" {
		return "", fmt.Errorf("%w: save name %q has no letters or digits", apperr.ErrInvalid, name)
	}
	if _, ok := s.saves[key]; ok {
		return "", apperr.AlreadyExists(key)
	}

	saves := maps.Clone(s.saves)
	saves[key] = &Save{
		Key:        key,
		Name:       name,
		RootHint:   hints.Root,
		FilterHint: hints.Filter,
		Version:    hints.Version,
	}
	if err := s.commit(ctx, saves); err != nil {
		return "", err
	}

	slog.Info("remote save registered", "key", key)
	return key, nil
}

// Edit applies e to the entry under key and returns the entry's key
// afterwards. A rename moves the artifact before the catalog is rewritten.
func (s *Store) Edit(ctx context.Context, key string, e Edit) (string, error) {
	if err := s.load(ctx); err != nil {
		return "", err
	}

	current, ok := s.saves[key]
	if !ok {
		return "", apperr.NotFound(key)
	}

	updated := *current
	if e.Name != nil {
		newKey := names.Normalize(*e.Name)
		if newKey == "" {
			return "", fmt.Errorf("%w: save name %q has no letters or digits", apperr.ErrInvalid, *e.Name)
		}
		if _, taken := s.saves[newKey]; taken && newKey != key {
			return "", apperr.AlreadyExists(newKey)
		}
		updated.Key = newKey
		updated.Name = *e.Name
	}
	if e.RootHint != nil {
		updated.RootHint = *e.RootHint
	}
	if e.FilterHint != nil {
		updated.FilterHint = *e.FilterHint
	}
	if e.Version != nil {
		updated.Version = *e.Version
	}

	if updated.Key != key && updated.Uploaded() {
		err := s.backend.RenameArtifact(ctx, ArtifactName(key), ArtifactName(updated.Key))
		if errors.Is(err, backend.ErrNotFound) {
			slog.Warn("remote artifact missing during rename", "key", key)
		} else if err != nil {
			return "", fmt.Errorf("%w: rename artifact %s: %w", apperr.ErrIO, key, err)
		}
	}

	saves := maps.Clone(s.saves)
	delete(saves, key)
	saves[updated.Key] = &updated
	if err := s.commit(ctx, saves); err != nil {
		return "", err
	}

	if updated.Key != key {
		slog.Info("remote save renamed", "from", key, "to", updated.Key)
	}
	return updated.Key, nil
}

// Upload stores the artifact at artifactPath for key and records the upload
// time and size.
func (s *Store) Upload(ctx context.Context, key, artifactPath string, timestamp time.Time) error {
	if err := s.load(ctx); err != nil {
		return err
	}

	current, ok := s.saves[key]
	if !ok {
		return apperr.NotFound(key)
	}

	info, err := os.Stat(artifactPath)
	if err != nil {
		return fmt.Errorf("%w: stat artifact: %w", apperr.ErrIO, err)
	}

	if err := s.backend.StoreArtifact(ctx, ArtifactName(key), artifactPath); err != nil {
		return fmt.Errorf("%w: store artifact %s: %w", apperr.ErrIO, key, err)
	}

	updated := *current
	updated.LastUpload = &timestamp
	updated.Size = info.Size()

	saves := maps.Clone(s.saves)
	saves[key] = &updated
	if err := s.commit(ctx, saves); err != nil {
		return err
	}

	slog.Info("remote save uploaded", "key", key, "size", humanize.Bytes(uint64(updated.Size)))
	return nil
}

// Load fetches the artifact for key into outputPath.
func (s *Store) Load(ctx context.Context, key, outputPath string) error {
	if err := s.load(ctx); err != nil {
		return err
	}

	current, ok := s.saves[key]
	if !ok {
		return apperr.NotFound(key)
	}
	if !current.Uploaded() {
		return fmt.Errorf("%w: no artifact stored for %q", apperr.ErrNotFound, key)
	}

	err := s.backend.LoadArtifact(ctx, ArtifactName(key), outputPath)
	if errors.Is(err, backend.ErrNotFound) {
		return fmt.Errorf("%w: artifact for %q is missing from remote storage", apperr.ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("%w: load artifact %s: %w", apperr.ErrIO, key, err)
	}

	slog.Debug("remote save downloaded", "key", key, "path", outputPath)
	return nil
}

// Delete removes the artifact and then the catalog entry.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	if _, ok := s.saves[key]; !ok {
		return apperr.NotFound(key)
	}

	err := s.backend.DeleteArtifact(ctx, ArtifactName(key))
	if err != nil && !errors.Is(err, backend.ErrNotFound) {
		return fmt.Errorf("%w: delete artifact %s: %w", apperr.ErrIO, key, err)
	}

	saves := maps.Clone(s.saves)
	delete(saves, key)
	if err := s.commit(ctx, saves); err != nil {
		return err
	}

	slog.Info("remote save deleted", "key", key)
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (Save, error) {
	if err := s.load(ctx); err != nil {
		return Save{}, err
	}
	save, ok := s.saves[key]
	if !ok {
		return Save{}, apperr.NotFound(key)
	}
	return *save, nil
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := s.load(ctx); err != nil {
		return false, err
	}
	_, ok := s.saves[key]
	return ok, nil
}

// Keys returns all keys in sorted order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(s.saves)), nil
}

// List returns copies of all entries sorted by key.
func (s *Store) List(ctx context.Context) ([]Save, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Save, 0, len(keys))
	for _, key := range keys {
		out = append(out, *s.saves[key])
	}
	return out, nil
}

// Find resolves a user query to a single key.
func (s *Store) Find(ctx context.Context, query string) (string, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return "", err
	}
	return names.Find(keys, query, func(key string) string {
		return s.saves[key].Name
	})
}

func (s *Store) load(ctx context.Context) error {
	if s.saves != nil {
		return nil
	}

	data, err := s.backend.LoadDocument(ctx, DocumentName)
	if errors.Is(err, backend.ErrNotFound) {
		slog.Debug("remote registry not found, starting empty")
		s.saves = map[string]*Save{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read remote registry: %w", apperr.ErrIO, err)
	}

	var doc document
	if err := codec.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: parse remote registry: %w", apperr.ErrDecode, err)
	}
	if doc.Version != FormatVersion {
		return fmt.Errorf("%w: remote registry has version %d, expected %d",
			apperr.ErrFormatVersion, doc.Version, FormatVersion)
	}

	saves := make(map[string]*Save, len(doc.Saves))
	for key, save := range doc.Saves {
		if save == nil {
			continue
		}
		save.Key = key
		saves[key] = save
	}
	s.saves = saves

	slog.Debug("remote registry loaded", "saves", len(saves))
	return nil
}

func (s *Store) commit(ctx context.Context, saves map[string]*Save) error {
	data, err := codec.MarshalDocument(document{Version: FormatVersion, Saves: saves})
	if err != nil {
		return fmt.Errorf("encode remote registry: %w", err)
	}
	if err := s.backend.StoreDocument(ctx, DocumentName, data); err != nil {
		return fmt.Errorf("%w: write remote registry: %w", apperr.ErrIO, err)
	}
	s.saves = saves
	return nil
}
