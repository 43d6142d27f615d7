// Package backend defines the storage capability the remote store is built
// on. A backend holds named documents (small JSON blobs read into memory) and
// named artifacts (archives streamed to and from local files).
package backend

import (
	"context"
	"errors"
)

// ErrNotFound is returned by every backend when the named document or
// artifact does not exist.
var ErrNotFound = errors.New("not found in remote storage")

type Backend interface {
	LoadDocument(ctx context.Context, name string) ([]byte, error)
	StoreDocument(ctx context.Context, name string, data []byte) error
	// LoadArtifact copies the artifact into the local file destination.
	LoadArtifact(ctx context.Context, name, destination string) error
	// StoreArtifact uploads the local file source, replacing any artifact
	// with the same name.
	StoreArtifact(ctx context.Context, name, source string) error
	RenameArtifact(ctx context.Context, oldName, newName string) error
	DeleteArtifact(ctx context.Context, name string) error
}
