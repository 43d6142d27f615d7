package main

import (
	"fmt"

	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/local"
	"github.com/spf13/cobra"
)

func newEditCmd(a *app) *cobra.Command {
	var (
		edit      local.Edit
		localOnly bool
		newName   string
		root      string
		filter    string
		version   string
	)

	cmd := &cobra.Command{
		Use:   "edit NAME...",
		Short: "Change a tracked save",
		Long: `Change a tracked save. Unless --local-only is given, the name, root and
filter are carried over to the remote entry too; the version only while both
copies are in sync.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("name") {
				edit.Name = &newName
			}
			if flags.Changed("root") {
				edit.Root = &root
			}
			if flags.Changed("filter") {
				edit.Filter = &filter
			}
			if flags.Changed("version") {
				edit.Version = &version
			}
			if edit == (local.Edit{}) {
				return fmt.Errorf("%w: nothing to change, pass --name, --root, --filter or --version", apperr.ErrInvalid)
			}

			c, err := a.openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			key, err := c.Local.Find(saveName(args))
			if err != nil {
				return err
			}

			newKey, err := c.Engine.Edit(cmd.Context(), key, edit, localOnly)
			if err != nil {
				return err
			}
			save, err := c.Local.Get(newKey)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", bold.Render(save.Name))
			return nil
		},
	}

	f := cmd.Flags()
	f.SortFlags = false
	f.StringVarP(&newName, "name", "n", "", "new name")
	f.StringVarP(&root, "root", "r", "", "new save folder")
	f.StringVarP(&filter, "filter", "f", "", "new filter")
	f.StringVarP(&version, "version", "v", "", "new game version")
	f.BoolVar(&localOnly, "local-only", false, "leave the remote entry untouched")
	return cmd
}
