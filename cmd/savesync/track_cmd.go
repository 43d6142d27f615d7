package main

import (
	"fmt"

	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/reconcile"
	"github.com/spf13/cobra"
)

func newTrackCmd(a *app) *cobra.Command {
	var (
		root, filter, version string
		adopt                 bool
	)

	cmd := &cobra.Command{
		Use:     "track NAME...",
		Aliases: []string{"add"},
		Short:   "Start tracking a save folder",
		Long: `Start tracking a save folder under NAME.

The filter is a comma separated list of globs matched against paths relative
to the root; a leading ! excludes. With --copy, NAME is looked up in the remote
and its root, filter and version hints are used unless overridden.`,
		Example: `  savesync track Hollow Knight -r "~/.config/unity3d/Team Cherry/Hollow Knight" -f "*.dat"
  savesync track --copy hollow`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			name := saveName(args)
			var key string
			if adopt {
				var opts reconcile.AdoptOptions
				if cmd.Flags().Changed("root") {
					opts.Root = &root
				}
				if cmd.Flags().Changed("filter") {
					opts.Filter = &filter
				}
				if cmd.Flags().Changed("version") {
					opts.Version = &version
				}
				key, err = c.Engine.Adopt(cmd.Context(), name, opts)
			} else {
				if root == "" {
					return fmt.Errorf("%w: --root is required", apperr.ErrInvalid)
				}
				key, err = c.Local.Track(name, root, filter, version)
			}
			if err != nil {
				return err
			}

			save, err := c.Local.Get(key)
			if err != nil {
				return err
			}
			files, err := save.Files()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tracking %s at %s (%d files)\n",
				bold.Render(save.Name), cyan.Render(save.Root), len(files))
			return nil
		},
	}

	f := cmd.Flags()
	f.SortFlags = false
	f.StringVarP(&root, "root", "r", "", "save folder")
	f.StringVarP(&filter, "filter", "f", "", "files to include, e.g. \"*.sav, !backup*\"")
	f.StringVarP(&version, "version", "v", "", "game version the saves belong to")
	f.BoolVar(&adopt, "copy", false, "track a save that so far only exists remotely")
	return cmd
}
