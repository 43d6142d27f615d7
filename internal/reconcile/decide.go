// Package reconcile compares the local and remote copies of a save and moves
// the archive in whichever direction brings them back in step.
package reconcile

import (
	"time"
)

type Action int

const (
	ActionNone Action = iota
	ActionUpload
	ActionDownload
	ActionConflict
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "up to date"
	case ActionUpload:
		return "upload"
	case ActionDownload:
		return "download"
	case ActionConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// State holds the three timestamps a decision is made from. Nil stands for
// the earliest possible time.
type State struct {
	LocalModified *time.Time
	LastSync      *time.Time
	RemoteUpload  *time.Time
	// SyncedFiles is the number of files selected at the last sync.
	SyncedFiles int
}

// RemoteUpdated reports whether the remote copy was uploaded after the last
// sync.
func (s State) RemoteUpdated() bool {
	return later(s.RemoteUpload, s.LastSync)
}

// LocalUpdated reports whether a selected file changed after the last sync.
func (s State) LocalUpdated() bool {
	return later(s.LocalModified, s.LastSync)
}

// LocalMissing reports whether the files present at the last sync are all
// gone while an uploaded copy exists. A sync that left nothing selected never
// counts as missing.
func (s State) LocalMissing() bool {
	return s.LocalModified == nil && s.RemoteUpload != nil && s.SyncedFiles > 0
}

// Decide maps a state to the action that brings both copies in step.
// Changes on both sides are a conflict and never resolved automatically.
// A local copy with no files left is restored from the remote one.
func Decide(s State) Action {
	remote, local := s.RemoteUpdated(), s.LocalUpdated()
	switch {
	case remote && local:
		return ActionConflict
	case local:
		return ActionUpload
	case remote, s.LocalMissing():
		return ActionDownload
	default:
		return ActionNone
	}
}

// later is a strict a > b where nil is the minimum.
func later(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
