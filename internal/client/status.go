package client

import (
	"context"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/savesync/savesync/internal/local"
	"github.com/savesync/savesync/internal/reconcile"
	"github.com/savesync/savesync/internal/remote"
)

// StatusRow describes one save known locally, remotely or both.
type StatusRow struct {
	Key    string
	Name   string
	Local  *local.Save
	Remote *remote.Save
	State  reconcile.State
	// Action is what sync would do. Only meaningful when Local is set and
	// Err is nil.
	Action reconcile.Action
	// Err is set when the local files could not be scanned.
	Err error
}

func (r StatusRow) Tracked() bool { return r.Local != nil }

// Status lists the union of local and remote saves sorted by key.
func (c *Client) Status(ctx context.Context) ([]StatusRow, error) {
	localKeys := c.Local.Keys()
	remoteKeys, err := c.Remote.Keys(ctx)
	if err != nil {
		return nil, err
	}

	keys := mapset.NewThreadUnsafeSet(localKeys...)
	keys.Append(remoteKeys...)
	remoteSet := mapset.NewThreadUnsafeSet(remoteKeys...)

	sorted := keys.ToSlice()
	slices.Sort(sorted)

	rows := make([]StatusRow, 0, len(sorted))
	for _, key := range sorted {
		row := StatusRow{Key: key}

		if remoteSet.Contains(key) {
			rs, err := c.Remote.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			row.Remote = &rs
			row.Name = rs.Name
			row.State.RemoteUpload = rs.LastUpload
		}

		if c.Local.Has(key) {
			ls, err := c.Local.Get(key)
			if err != nil {
				return nil, err
			}
			row.Local = &ls
			row.Name = ls.Name

			state, err := reconcile.LocalState(ls)
			if err != nil {
				row.Err = err
			} else {
				state.RemoteUpload = row.State.RemoteUpload
				row.State = state
				row.Action = reconcile.Decide(state)
			}
		}

		rows = append(rows, row)
	}
	return rows, nil
}
