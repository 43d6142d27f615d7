// Package archive packs the selected files of a save into a single zip
// artifact and restores such an artifact into a save root.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/utils"
)

const defaultFileMode = 0o644

// Pack writes every file in files, given relative to root, into a new zip at
// output. Entry names are the slash separated relative paths. Any failure
// removes the partial output.
func Pack(root string, files []string, output string) (err error) {
	if err := utils.EnsureParent(output); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrIO, err)
	}

	out, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("%w: create artifact: %w", apperr.ErrIO, err)
	}
	defer func() {
		if err == nil {
			return
		}
		out.Close()
		if rErr := os.Remove(output); rErr != nil && !errors.Is(rErr, fs.ErrNotExist) {
			slog.Warn("failed to remove partial artifact", "path", output, "error", rErr)
		}
	}()

	zw := zip.NewWriter(out)
	for _, rel := range files {
		if err := addFile(zw, root, rel); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: finish artifact: %w", apperr.ErrIO, err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("%w: sync artifact: %w", apperr.ErrIO, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close artifact: %w", apperr.ErrIO, err)
	}

	slog.Debug("archive packed", "root", root, "files", len(files), "artifact", output)
	return nil
}

func addFile(zw *zip.Writer, root, rel string) error {
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("%w: %q is not a path inside the save root", apperr.ErrIO, rel)
	}

	src, err := os.Open(filepath.Join(root, rel))
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", apperr.ErrIO, rel, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", apperr.ErrIO, rel, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", apperr.ErrIO, rel)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("%w: header %s: %w", apperr.ErrIO, rel, err)
	}
	hdr.Name = filepath.ToSlash(rel)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("%w: add %s: %w", apperr.ErrIO, rel, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("%w: copy %s: %w", apperr.ErrIO, rel, err)
	}
	return nil
}

// Unpack extracts every entry of artifact below target, overwriting existing
// files and restoring their modification times.
func Unpack(artifact, target string) error {
	r, err := zip.OpenReader(artifact)
	// insecure names are rejected entry by entry below
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: open artifact: %w", apperr.ErrIO, err)
		}
		return fmt.Errorf("%w: open artifact %s: %w", apperr.ErrDecode, artifact, err)
	}
	defer r.Close()

	if err := utils.EnsureDir(target); err != nil {
		return fmt.Errorf("%w: create save root: %w", apperr.ErrIO, err)
	}

	for _, f := range r.File {
		if err := extractFile(f, target); err != nil {
			return err
		}
	}

	slog.Debug("archive unpacked", "artifact", artifact, "files", len(r.File), "target", target)
	return nil
}

func extractFile(f *zip.File, target string) error {
	rel := filepath.FromSlash(f.Name)
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("%w: entry %q escapes the save root", apperr.ErrDecode, f.Name)
	}
	dst := filepath.Join(target, rel)

	if strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir() {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return fmt.Errorf("%w: mkdir %s: %w", apperr.ErrIO, rel, err)
		}
		return nil
	}

	if err := utils.EnsureParent(dst); err != nil {
		return fmt.Errorf("%w: mkdir for %s: %w", apperr.ErrIO, rel, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %w", apperr.ErrDecode, f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = defaultFileMode
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", apperr.ErrIO, rel, err)
	}

	_, err = io.Copy(out, entryReader{rc})
	if cErr := out.Close(); err == nil && cErr != nil {
		err = cErr
	}
	if err != nil {
		if errors.Is(err, apperr.ErrDecode) {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
		return fmt.Errorf("%w: extract %s: %w", apperr.ErrIO, f.Name, err)
	}

	if !f.Modified.IsZero() {
		if err := os.Chtimes(dst, f.Modified, f.Modified); err != nil {
			slog.Warn("failed to restore modification time", "path", dst, "error", err)
		}
	}
	return nil
}

// entryReader tags read failures of a zip entry as decode errors so they can
// be told apart from write failures on the destination.
type entryReader struct {
	r io.Reader
}

func (e entryReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("%w: %w", apperr.ErrDecode, err)
	}
	return n, err
}
