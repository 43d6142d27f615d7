package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUntrackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "untrack NAME...",
		Aliases: []string{"remove", "rm"},
		Short:   "Stop tracking a save. Files are left in place",
		Args:    cobra.MinimumNArgs(1),
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
			if err := c.Local.Untrack(key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Save %s is no longer tracked\n", bold.Render(save.Name))
			return nil
		},
	}
}
