package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUploadCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "upload NAME...",
		Short: "Upload a save, replacing the remote copy",
		Long: `Upload a save, replacing the remote copy. Refuses when the remote copy
changed since the last sync or nothing changed locally, unless --force is given.`,
		Args: cobra.MinimumNArgs(1),
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
			if err := c.Engine.Upload(cmd.Context(), key, force); err != nil {
				return err
			}

			rs, err := c.Remote.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%s)\n", bold.Render(rs.Name), formatSize(rs.Size, true))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "upload even if the remote copy is newer or nothing changed")
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "load NAME...",
		Aliases: []string{"download"},
		Short:   "Download a save, replacing the local files",
		Long: `Download a save, overwriting the local files. Refuses when local files
changed since the last sync or the remote copy did not change, unless --force is
given.`,
		Args: cobra.MinimumNArgs(1),
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
			if err := c.Engine.Download(cmd.Context(), key, force); err != nil {
				return err
			}

			save, err := c.Local.Get(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s into %s\n", bold.Render(save.Name), cyan.Render(save.Root))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "download even if local files changed or the remote did not")
	return cmd
}
