package main

import (
	"fmt"

	"github.com/savesync/savesync/internal/client"
	"github.com/savesync/savesync/internal/reconcile"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tracked saves",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			rows, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}

			t := newTable("Save", "Last modified", "Last sync", "Remote upload", "Remote size", "Status")
			count := 0
			for _, row := range rows {
				if !all && !row.Tracked() {
					continue
				}
				count++
				t.Row(listRow(row)...)
			}

			out := cmd.OutOrStdout()
			if count == 0 {
				if all {
					fmt.Fprintln(out, "There are no tracked or uploaded saves.")
				} else {
					fmt.Fprintln(out, "There are no currently tracked saves.")
				}
				return nil
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include saves that only exist remotely")
	return cmd
}

func listRow(row client.StatusRow) []string {
	modified, synced, uploaded, size := "-", "-", "-", "-"
	if row.Local != nil {
		modified = formatTime(row.Local.LastModified)
		synced = formatTime(row.Local.LastSync)
	}
	if row.Remote != nil {
		uploaded = formatTime(row.Remote.LastUpload)
		size = formatSize(row.Remote.Size, row.Remote.Uploaded())
	}
	return []string{row.Name, modified, synced, uploaded, size, statusText(row)}
}

func statusText(row client.StatusRow) string {
	if !row.Tracked() {
		return gray.Render("remote only")
	}
	if row.Err != nil {
		return red.Render("unreadable")
	}
	return actionText(row.Action)
}

func actionText(action reconcile.Action) string {
	switch action {
	case reconcile.ActionNone:
		return green.Render(action.String())
	case reconcile.ActionConflict:
		return red.Render(action.String())
	default:
		return yellow.Render(action.String())
	}
}
