// Package selector turns a save root and its filter expression into the
// concrete set of files that make up the save.
package selector

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/savesync/savesync/internal/apperr"
)

const everything = "**"

var errStopWalk = errors.New("selector: stop walk")

// Select yields the root relative path of every regular file under root that the
// filter selects. Directories and symlinks are never yielded and symlinked
// directories are not followed. A root that does not exist yields nothing.
// Each range over the sequence walks the tree again.
func Select(root string, filter *Filter) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		info, err := os.Stat(root)
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err != nil {
			yield("", fmt.Errorf("%w: stat root: %w", apperr.ErrIO, err))
			return
		}
		if !info.IsDir() {
			yield("", fmt.Errorf("%w: save root %q is not a directory", apperr.ErrIO, root))
			return
		}

		err = doublestar.GlobWalk(os.DirFS(root), everything, func(path string, d fs.DirEntry) error {
			if !d.Type().IsRegular() {
				return nil
			}
			rel := filepath.FromSlash(path)
			if !filter.Match(rel) {
				return nil
			}
			if !yield(rel, nil) {
				return errStopWalk
			}
			return nil
		}, doublestar.WithFilesOnly(), doublestar.WithNoFollow(), doublestar.WithFailOnIOErrors())

		if err != nil && !errors.Is(err, errStopWalk) {
			yield("", fmt.Errorf("%w: walk %s: %w", apperr.ErrIO, root, err))
		}
	}
}

// Files collects Select into a slice.
func Files(root string, filter *Filter) ([]string, error) {
	var files []string
	for rel, err := range Select(root, filter) {
		if err != nil {
			return nil, err
		}
		files = append(files, rel)
	}
	return files, nil
}

// LastModified returns the newest modification time among the selected files,
// or nil when nothing is selected.
func LastModified(root string, filter *Filter) (*time.Time, error) {
	var latest *time.Time
	for rel, err := range Select(root, filter) {
		if err != nil {
			return nil, err
		}
		info, err := os.Lstat(filepath.Join(root, rel))
		if err != nil {
			// removed between the walk and the stat
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%w: stat %s: %w", apperr.ErrIO, rel, err)
		}
		if mtime := info.ModTime(); latest == nil || mtime.After(*latest) {
			latest = &mtime
		}
	}
	return latest, nil
}
