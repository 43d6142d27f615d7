// Package apperr holds the error conditions shared by the registries, the
// reconciler and the command layer.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// registry lookups
	ErrNotFound      = errors.New("save not found")
	ErrAlreadyExists = errors.New("save already exists")
	ErrAmbiguous     = errors.New("save name is ambiguous")
	ErrInvalid       = errors.New("invalid argument")

	// persisted documents and artifacts
	ErrFormatVersion = errors.New("registry format version mismatch")
	ErrIO            = errors.New("i/o failure")
	ErrDecode        = errors.New("corrupt data")

	// process
	ErrLocked = errors.New("data directory locked by another savesync process")

	// transfer guards, bypassed with --force
	ErrRemoteChanged = errors.New("remote files changed since last sync")
	ErrLocalChanged  = errors.New("local files changed since last sync")
	ErrUnchanged     = errors.New("nothing changed since last sync")
	ErrNotUploaded   = errors.New("save has never been uploaded")
)

// AmbiguousError is returned when a fuzzy lookup matches more than one save.
type AmbiguousError struct {
	Query string
	Names []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%q matches several saves: %s", e.Query, strings.Join(e.Names, ", "))
}

func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguous
}

// NotFound wraps ErrNotFound with the key or query that was looked up.
func NotFound(what string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, what)
}

// AlreadyExists wraps ErrAlreadyExists with the conflicting key.
func AlreadyExists(key string) error {
	return fmt.Errorf("%w: %q", ErrAlreadyExists, key)
}

// IsUserError reports whether err is an expected condition that should be shown
// to the user as a single message rather than treated as a failure.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrAlreadyExists, ErrAmbiguous, ErrInvalid, ErrLocked,
		ErrRemoteChanged, ErrLocalChanged, ErrUnchanged, ErrNotUploaded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
