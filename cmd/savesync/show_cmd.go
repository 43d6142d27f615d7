package main

import (
	"errors"
	"strconv"

	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/reconcile"
	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME...",
		Short: "Show a tracked save",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			key, err := c.Local.Find(saveName(args))
			if err != nil {
				return err
			}
			save, err := c.Local.Get(key)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printField(out, "Name", bold.Render(save.Name))
			if save.Version != "" {
				printField(out, "Version", save.Version)
			}
			printField(out, "Root", cyan.Render(save.Root))
			if save.Filter != "" {
				printField(out, "Filter", save.Filter)
			}
			if files, err := save.Files(); err == nil {
				printField(out, "Files", strconv.Itoa(len(files)))
			}
			printField(out, "Last modified", formatAge(save.LastModified))
			printField(out, "Last sync", formatAge(save.LastSync))

			state, scanErr := reconcile.LocalState(save)
			rs, err := c.Remote.Get(cmd.Context(), key)
			switch {
			case err == nil:
				state.RemoteUpload = rs.LastUpload
				printField(out, "Remote upload", formatAge(rs.LastUpload))
				printField(out, "Remote size", formatSize(rs.Size, rs.Uploaded()))
			case errors.Is(err, apperr.ErrNotFound):
				printField(out, "Remote", gray.Render("not uploaded"))
			default:
				return err
			}

			if scanErr != nil {
				printField(out, "Status", red.Render("unreadable: "+scanErr.Error()))
				return nil
			}
			printField(out, "Status", actionText(reconcile.Decide(state)))
			return nil
		},
	}
}
