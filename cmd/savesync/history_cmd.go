package main

import (
	"errors"
	"fmt"

	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/client"
	"github.com/savesync/savesync/internal/journal"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [NAME...]",
		Short: "Show recent transfers, conflicts and failures",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			key := ""
			if len(args) > 0 {
				key, err = historyKey(cmd, c, saveName(args))
				if err != nil {
					return err
				}
			}

			entries, err := c.History.List(cmd.Context(), key, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history yet.")
				return nil
			}

			t := newTable("Time", "Save", "Action", "Detail")
			for _, e := range entries {
				at := e.Time
				t.Row(formatTime(&at), e.Key, actionLabel(e.Action), e.Detail)
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", journal.DefaultLimit, "number of entries to show")
	return cmd
}

// historyKey resolves name against the tracked saves first, then the remote.
func historyKey(cmd *cobra.Command, c *client.Client, name string) (string, error) {
	key, err := c.Local.Find(name)
	if !errors.Is(err, apperr.ErrNotFound) {
		return key, err
	}
	return c.Remote.Find(cmd.Context(), name)
}

func actionLabel(action journal.Action) string {
	switch action {
	case journal.ActionFailed, journal.ActionConflict:
		return red.Render(string(action))
	case journal.ActionUpload, journal.ActionDownload:
		return green.Render(string(action))
	default:
		return string(action)
	}
}
