package main

import (
	"fmt"

	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/backend/davstore"
	"github.com/savesync/savesync/internal/backend/s3store"
	"github.com/savesync/savesync/internal/config"
	"github.com/savesync/savesync/internal/utils"
	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	var (
		remote config.Remote
		s3cfg  s3store.Config
		dav    davstore.Config
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file for a remote",
		Example: `  savesync init --remote localfs --folder ~/Dropbox/saves
  savesync init --remote s3 --s3-bucket saves --s3-region eu-west-1
  savesync init --remote webdav --webdav-url https://dav.example.com/saves --webdav-user alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolvePath(a.configPath)
			if utils.FileExists(path) && !force {
				return fmt.Errorf("%w: config %s exists, pass --force to overwrite", apperr.ErrAlreadyExists, path)
			}

			cfg := &config.Config{DataDir: a.cfg.DataDir, Remote: remote}
			switch remote.Type {
			case config.RemoteS3:
				cfg.Remote.S3 = &s3cfg
			case config.RemoteWebDAV:
				cfg.Remote.WebDAV = &dav
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}
			if err := utils.EnsureDir(cfg.DataDir); err != nil {
				return fmt.Errorf("%w: create data dir: %w", apperr.ErrIO, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote config to %s\n", green.Render(path))
			printField(out, "Data dir", cfg.DataDir)
			printField(out, "Remote", cfg.Remote.Describe())
			return nil
		},
	}

	f := cmd.Flags()
	f.SortFlags = false
	f.StringVarP(&remote.Type, "remote", "t", config.RemoteLocalFS, "remote type: localfs, s3 or webdav")
	f.StringVar(&remote.Folder, "folder", "", "localfs: shared folder holding the saves")
	f.StringVar(&s3cfg.Bucket, "s3-bucket", "", "s3: bucket name")
	f.StringVar(&s3cfg.Region, "s3-region", "", "s3: region")
	f.StringVar(&s3cfg.Endpoint, "s3-endpoint", "", "s3: custom endpoint url, e.g. for MinIO")
	f.StringVar(&s3cfg.Prefix, "s3-prefix", "", "s3: key prefix")
	f.StringVar(&s3cfg.AccessKey, "s3-access-key", "", "s3: access key id")
	f.StringVar(&s3cfg.SecretKey, "s3-secret-key", "", "s3: secret access key")
	f.StringVar(&dav.URL, "webdav-url", "", "webdav: collection url")
	f.StringVar(&dav.Username, "webdav-user", "", "webdav: user name")
	f.StringVar(&dav.Password, "webdav-password", "", "webdav: password")
	f.BoolVarP(&force, "force", "f", false, "overwrite an existing config")
	return cmd
}
