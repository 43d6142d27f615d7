// Package localfs stores remote saves in a folder reachable through the
// filesystem, typically a synced cloud-drive or network share mount.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/savesync/savesync/internal/backend"
	"github.com/savesync/savesync/internal/utils"
	"github.com/spf13/afero"
)

const stagePrefix = ".stage-"

type Backend struct {
	fs afero.Fs
}

// New returns a backend rooted at folder, creating the folder if needed.
func New(folder string) (*Backend, error) {
	if folder == "" {
		return nil, errors.New("remote folder cannot be empty")
	}
	abs, err := utils.ResolvePath(folder)
	if err != nil {
		return nil, err
	}
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create remote folder %s: %w", abs, err)
	}
	return NewWithFs(afero.NewBasePathFs(osFs, abs)), nil
}

// NewWithFs returns a backend on an arbitrary afero filesystem.
func NewWithFs(fsys afero.Fs) *Backend {
	return &Backend{fs: fsys}
}

func (b *Backend) String() string {
	const localfs = "localfs"
	if bp, ok := b.fs.(*afero.BasePathFs); ok {
		if p, err := bp.RealPath(""); err == nil {
			return localfs + "@" + p
		}
	}
	return localfs
}

func (b *Backend) LoadDocument(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(b.fs, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("document %q: %w", name, backend.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read document %q: %w", name, err)
	}
	return data, nil
}

func (b *Backend) StoreDocument(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stage := stageName(name)
	if err := afero.WriteFile(b.fs, stage, data, 0o644); err != nil {
		b.fs.Remove(stage)
		return fmt.Errorf("write document %q: %w", name, err)
	}
	return b.commitStage(stage, name)
}

func (b *Backend) LoadArtifact(ctx context.Context, name, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := b.fs.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("artifact %q: %w", name, backend.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("open artifact %q: %w", name, err)
	}
	defer src.Close()

	if err := utils.EnsureParent(destination); err != nil {
		return err
	}
	dst, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("create %s: %w", destination, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy artifact %q: %w", name, err)
	}
	return dst.Close()
}

func (b *Backend) StoreArtifact(ctx context.Context, name, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open %s: %w", source, err)
	}
	defer src.Close()

	stage := stageName(name)
	dst, err := b.fs.OpenFile(stage, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create artifact %q: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		b.fs.Remove(stage)
		return fmt.Errorf("write artifact %q: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		b.fs.Remove(stage)
		return fmt.Errorf("write artifact %q: %w", name, err)
	}
	return b.commitStage(stage, name)
}

func (b *Backend) RenameArtifact(ctx context.Context, oldName, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.fs.Stat(oldName); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("artifact %q: %w", oldName, backend.ErrNotFound)
	}
	return b.replace(oldName, newName)
}

func (b *Backend) DeleteArtifact(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.fs.Remove(name)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("artifact %q: %w", name, backend.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("remove artifact %q: %w", name, err)
	}
	return nil
}

// replace moves from over to. Rename does not replace an existing file on
// every platform, so the target is cleared first when needed.
func (b *Backend) replace(from, to string) error {
	if err := b.fs.Rename(from, to); err == nil {
		return nil
	}
	if err := b.fs.Remove(to); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("replace %q: %w", to, err)
	}
	if err := b.fs.Rename(from, to); err != nil {
		return fmt.Errorf("rename %q to %q: %w", from, to, err)
	}
	return nil
}

// commitStage moves a fully written stage file into place or discards it.
func (b *Backend) commitStage(stage, name string) error {
	if err := b.replace(stage, name); err != nil {
		b.fs.Remove(stage)
		return err
	}
	return nil
}

func stageName(name string) string {
	return filepath.Join(filepath.Dir(name), stagePrefix+uuid.NewString()+"-"+filepath.Base(name))
}
