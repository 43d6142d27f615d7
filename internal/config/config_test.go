package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/backend/s3store"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `{
		"data_dir": "/var/lib/savesync",
		"remote": {"type": "s3", "s3": {"bucket": "saves", "region": "eu-west-1", "prefix": "games"}}
	}`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "/var/lib/savesync", cfg.DataDir)
	assert.Equal(t, RemoteS3, cfg.Remote.Type)
	require.NotNil(t, cfg.Remote.S3)
	assert.Equal(t, "saves", cfg.Remote.S3.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Remote.S3.Region)
	assert.Nil(t, cfg.Remote.WebDAV)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, RemoteLocalFS, cfg.Remote.Type)
	assert.Nil(t, cfg.Remote.S3)
}

func TestLoad_Corrupt(t *testing.T) {
	_, err := Load(writeConfig(t, `{"data_dir":`), nil)
	assert.ErrorIs(t, err, apperr.ErrDecode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"data_dir": "/from/file", "remote": {"type": "localfs", "folder": "/mnt/share"}}`)
	t.Setenv("SAVESYNC_REMOTE_TYPE", "webdav")
	t.Setenv("SAVESYNC_REMOTE_WEBDAV_URL", "https://dav.example.com/saves")
	t.Setenv("SAVESYNC_REMOTE_WEBDAV_USERNAME", "alice")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.DataDir)
	assert.Equal(t, RemoteWebDAV, cfg.Remote.Type)
	require.NotNil(t, cfg.Remote.WebDAV)
	assert.Equal(t, "https://dav.example.com/saves", cfg.Remote.WebDAV.URL)
	assert.Equal(t, "alice", cfg.Remote.WebDAV.Username)
}

func TestLoad_DataDirFlag(t *testing.T) {
	path := writeConfig(t, `{"data_dir": "/from/file"}`)
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(DataDirFlag, "", "")
	require.NoError(t, flags.Parse([]string{"--data-dir", "/from/flag"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.DataDir)
}

func TestResolvePath(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	assert.Equal(t, "/explicit.json", ResolvePath("/explicit.json"))

	t.Setenv(ConfigPathEnv, "/from/env.json")
	assert.Equal(t, "/from/env.json", ResolvePath(""))
	assert.Equal(t, "/explicit.json", ResolvePath("/explicit.json"))
}

func TestValidate(t *testing.T) {
	tmp := t.TempDir()

	cases := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"no data dir", Config{Remote: Remote{Type: RemoteLocalFS, Folder: tmp}}, "data_dir"},
		{"no type", Config{DataDir: tmp}, "remote.type"},
		{"unknown type", Config{DataDir: tmp, Remote: Remote{Type: "ftp"}}, "remote.type"},
		{"localfs without folder", Config{DataDir: tmp, Remote: Remote{Type: RemoteLocalFS}}, "remote.folder"},
		{"s3 without bucket", Config{DataDir: tmp, Remote: Remote{Type: RemoteS3, S3: &s3store.Config{}}}, "remote.s3.bucket"},
		{"s3 bad endpoint", Config{DataDir: tmp, Remote: Remote{Type: RemoteS3,
			S3: &s3store.Config{Bucket: "b", Endpoint: "minio:9000"}}}, "remote.s3.endpoint"},
		{"webdav without url", Config{DataDir: tmp, Remote: Remote{Type: RemoteWebDAV}}, "remote.webdav.url"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.ErrorIs(t, err, apperr.ErrInvalid)
		})
	}
}

func TestValidate_ResolvesPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := Config{DataDir: "~/.savesync", Remote: Remote{Type: RemoteLocalFS, Folder: "relative/share"}}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join(home, ".savesync"), cfg.DataDir)
	assert.True(t, filepath.IsAbs(cfg.Remote.Folder))
	assert.Equal(t, filepath.Join(cfg.DataDir, "registry.json"), cfg.RegistryPath())
	assert.Equal(t, filepath.Join(cfg.DataDir, "tmp"), cfg.TmpDir())
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := &Config{
		DataDir: "/data",
		Remote:  Remote{Type: RemoteS3, S3: &s3store.Config{Bucket: "saves", SecretKey: "hunter2"}},
	}
	require.NoError(t, cfg.Save(path))
	assert.Equal(t, path, cfg.Path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.DataDir, loaded.DataDir)
	assert.Equal(t, *cfg.Remote.S3, *loaded.Remote.S3)
}

func TestRemote_Describe(t *testing.T) {
	r := Remote{Type: RemoteS3, S3: &s3store.Config{Bucket: "saves", Prefix: "/games/", AccessKey: "AKIAEXAMPLE"}}
	assert.Equal(t, "s3://saves/games (key AKIA*****)", r.Describe())
	assert.Equal(t, "localfs /mnt/share", (&Remote{Type: RemoteLocalFS, Folder: "/mnt/share"}).Describe())
}

func TestLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{DataDir: dir}

	path, err := cfg.LogFile("savesync.log")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logs", "savesync.log"), path)

	_, err = (&Config{}).LogFile("savesync.log")
	assert.Error(t, err)
}
