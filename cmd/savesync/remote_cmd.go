package main

import (
	"fmt"

	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/remote"
	"github.com/spf13/cobra"
)

func newRemoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Inspect and manage saves in remote storage",
	}
	cmd.AddCommand(
		newRemoteListCmd(a),
		newRemoteShowCmd(a),
		newRemoteEditCmd(a),
		newRemoteDeleteCmd(a),
	)
	return cmd
}

func newRemoteListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saves in remote storage",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			saves, err := c.Remote.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(saves) == 0 {
				fmt.Fprintln(out, "There are no saves in the remote.")
				return nil
			}

			t := newTable("Save", "Last upload", "Size", "Version")
			for _, s := range saves {
				version := s.Version
				if version == "" {
					version = "-"
				}
				t.Row(s.Name, formatTime(s.LastUpload), formatSize(s.Size, s.Uploaded()), version)
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}
}

func newRemoteShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME...",
		Short: "Show a save in remote storage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			key, err := c.Remote.Find(cmd.Context(), saveName(args))
			if err != nil {
				return err
			}
			s, err := c.Remote.Get(cmd.Context(), key)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printField(out, "Name", bold.Render(s.Name))
			if s.Version != "" {
				printField(out, "Version", s.Version)
			}
			printField(out, "Last upload", formatAge(s.LastUpload))
			printField(out, "Size", formatSize(s.Size, s.Uploaded()))
			if s.RootHint != "" {
				printField(out, "Root hint", cyan.Render(s.RootHint))
			}
			if s.FilterHint != "" {
				printField(out, "Filter hint", s.FilterHint)
			}
			if c.Local.Has(key) {
				printField(out, "Tracked", green.Render("yes"))
			} else {
				printField(out, "Tracked", gray.Render("no, use track --copy"))
			}
			return nil
		},
	}
}

func newRemoteEditCmd(a *app) *cobra.Command {
	var newName, root, filter, version string

	cmd := &cobra.Command{
		Use:   "edit NAME...",
		Short: "Change a save in remote storage only",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var edit remote.Edit
			flags := cmd.Flags()
			if flags.Changed("name") {
				edit.Name = &newName
			}
			if flags.Changed("root") {
				edit.RootHint = &root
			}
			if flags.Changed("filter") {
				edit.FilterHint = &filter
			}
			if flags.Changed("version") {
				edit.Version = &version
			}
			if edit == (remote.Edit{}) {
				return fmt.Errorf("%w: nothing to change, pass --name, --root, --filter or --version", apperr.ErrInvalid)
			}

			c, err := a.openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			key, err := c.Remote.Find(cmd.Context(), saveName(args))
			if err != nil {
				return err
			}
			newKey, err := c.Engine.EditRemote(cmd.Context(), key, edit)
			if err != nil {
				return err
			}
			s, err := c.Remote.Get(cmd.Context(), newKey)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated remote save %s\n", bold.Render(s.Name))
			if newKey != key && c.Local.Has(key) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n",
					yellow.Render("the local save still uses the old name, rename it with edit --local-only"))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.SortFlags = false
	f.StringVarP(&newName, "name", "n", "", "new name")
	f.StringVarP(&root, "root", "r", "", "new root hint")
	f.StringVarP(&filter, "filter", "f", "", "new filter hint")
	f.StringVarP(&version, "version", "v", "", "new game version")
	return cmd
}

func newRemoteDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME...",
		Aliases: []string{"rm"},
		Short:   "Delete a save and its archive from remote storage",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			key, err := c.Remote.Find(cmd.Context(), saveName(args))
			if err != nil {
				return err
			}
			s, err := c.Remote.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			if err := c.Engine.DeleteRemote(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Remote save %s deleted\n", bold.Render(s.Name))
			return nil
		},
	}
}
