package main

import (
	"fmt"

	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/reconcile"
	"github.com/spf13/cobra"
)

func newSyncCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "sync [NAME...]",
		Short: "Upload or download whichever copy changed",
		Long: `Compare the local and remote copy of a save and transfer the one that changed
since the last sync. Saves changed on both sides are reported as conflicts and
left alone; resolve them with upload or load. With --all every tracked save is
synced independently.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("%w: name a save or pass --all", apperr.ErrInvalid)
			}

			c, err := a.openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			var keys []string
			if all {
				keys = c.Local.Keys()
			} else {
				key, err := c.Local.Find(saveName(args))
				if err != nil {
					return err
				}
				keys = []string{key}
			}

			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, "There are no currently tracked saves.")
				return nil
			}

			results := c.Engine.SyncAll(cmd.Context(), keys)
			failed := 0
			for _, res := range results {
				name := res.Name
				if name == "" {
					name = res.Key
				}

				switch {
				case res.Err != nil:
					failed++
					fmt.Fprintf(out, "%s %s: %v\n", red.Render("failed"), bold.Render(name), res.Err)
				case res.Action == reconcile.ActionConflict:
					fmt.Fprintf(out, "%s %s changed on both sides, use upload or load to pick a copy\n",
						red.Render("conflict"), bold.Render(name))
				case res.Action == reconcile.ActionUpload:
					fmt.Fprintf(out, "%s %s\n", green.Render("uploaded"), bold.Render(name))
				case res.Action == reconcile.ActionDownload:
					fmt.Fprintf(out, "%s %s\n", green.Render("loaded"), bold.Render(name))
				default:
					fmt.Fprintf(out, "%s %s\n", gray.Render("up to date"), bold.Render(name))
				}
			}

			if failed > 0 {
				if len(results) == 1 {
					return results[0].Err
				}
				return fmt.Errorf("%d of %d saves failed to sync", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "sync every tracked save")
	return cmd
}
