// Package config loads the savesync configuration from a JSON file, the
// environment and command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/backend/davstore"
	"github.com/savesync/savesync/internal/backend/s3store"
	"github.com/savesync/savesync/internal/codec"
	"github.com/savesync/savesync/internal/utils"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	RemoteLocalFS = "localfs"
	RemoteS3      = "s3"
	RemoteWebDAV  = "webdav"

	EnvPrefix     = "SAVESYNC"
	ConfigPathEnv = "SAVESYNC_CONFIG_PATH"
	DataDirFlag   = "data-dir"

	registryFile = "registry.json"
	historyFile  = "history.db"
	lockFile     = "savesync.lock"
	tmpDir       = "tmp"
	logsDir      = "logs"
)

var (
	home, _           = os.UserHomeDir()
	DefaultDataDir    = filepath.Join(home, ".savesync")
	DefaultConfigPath = filepath.Join(DefaultDataDir, "config.json")
	altConfigPath     = filepath.Join(home, ".config", "savesync", "config.json")
)

// keys viper has to know about for env overrides to reach Unmarshal
var keys = []string{
	"data_dir",
	"remote.type",
	"remote.folder",
	"remote.s3.bucket",
	"remote.s3.region",
	"remote.s3.access_key",
	"remote.s3.secret_key",
	"remote.s3.endpoint",
	"remote.s3.prefix",
	"remote.webdav.url",
	"remote.webdav.username",
	"remote.webdav.password",
}

type Config struct {
	DataDir string `mapstructure:"data_dir" json:"data_dir"`
	Remote  Remote `mapstructure:"remote" json:"remote"`

	// Path is the file the config was read from or will be saved to.
	Path string `mapstructure:"-" json:"-"`
}

type Remote struct {
	Type   string           `mapstructure:"type" json:"type"`
	Folder string           `mapstructure:"folder" json:"folder,omitempty"`
	S3     *s3store.Config  `mapstructure:"s3" json:"s3,omitempty"`
	WebDAV *davstore.Config `mapstructure:"webdav" json:"webdav,omitempty"`
}

// ValidationError names the config field that is missing or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return apperr.ErrInvalid
}

// ResolvePath picks the config file in order: explicit path, the
// SAVESYNC_CONFIG_PATH variable, the first existing well known location, the
// default location.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if envPath := os.Getenv(ConfigPathEnv); envPath != "" {
		return envPath
	}
	for _, candidate := range []string{DefaultConfigPath, altConfigPath} {
		if utils.FileExists(candidate) {
			return candidate
		}
	}
	return DefaultConfigPath
}

// LoadDotEnv loads a .env file from the working directory if there is one.
// Variables already set in the environment win.
func LoadDotEnv() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}
}

// Load reads the config at path, applies SAVESYNC_* overrides and the
// data-dir flag if flags carries a changed one. A missing file is not an
// error; defaults apply.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("remote.type", RemoteLocalFS)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if flags != nil {
		if flag := flags.Lookup(DataDirFlag); flag != nil {
			if err := v.BindPFlag("data_dir", flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", DataDirFlag, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: config read '%s': %w", apperr.ErrDecode, path, err)
		}
		slog.Debug("config file not found, using defaults", "path", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: config decode '%s': %w", apperr.ErrDecode, path, err)
	}
	cfg.Path = path
	cfg.dropEmptySections()

	return &cfg, nil
}

// Validate checks the fields the selected remote needs and resolves the data
// dir and remote folder to absolute paths.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return &ValidationError{Field: "data_dir", Message: "is required"}
	}
	dataDir, err := utils.ResolvePath(c.DataDir)
	if err != nil {
		return &ValidationError{Field: "data_dir", Message: err.Error()}
	}
	c.DataDir = dataDir

	switch c.Remote.Type {
	case RemoteLocalFS:
		if c.Remote.Folder == "" {
			return &ValidationError{Field: "remote.folder", Message: "is required for a localfs remote"}
		}
		folder, err := utils.ResolvePath(c.Remote.Folder)
		if err != nil {
			return &ValidationError{Field: "remote.folder", Message: err.Error()}
		}
		c.Remote.Folder = folder

	case RemoteS3:
		if c.Remote.S3 == nil || c.Remote.S3.Bucket == "" {
			return &ValidationError{Field: "remote.s3.bucket", Message: "is required for an s3 remote"}
		}
		if c.Remote.S3.Endpoint != "" {
			if err := validateURL(c.Remote.S3.Endpoint); err != nil {
				return &ValidationError{Field: "remote.s3.endpoint", Message: err.Error()}
			}
		}

	case RemoteWebDAV:
		if c.Remote.WebDAV == nil || c.Remote.WebDAV.URL == "" {
			return &ValidationError{Field: "remote.webdav.url", Message: "is required for a webdav remote"}
		}
		if err := validateURL(c.Remote.WebDAV.URL); err != nil {
			return &ValidationError{Field: "remote.webdav.url", Message: err.Error()}
		}

	case "":
		return &ValidationError{Field: "remote.type", Message: "is required"}

	default:
		return &ValidationError{
			Field:   "remote.type",
			Message: fmt.Sprintf("must be one of %s, %s, %s; got %q", RemoteLocalFS, RemoteS3, RemoteWebDAV, c.Remote.Type),
		}
	}

	return nil
}

// Save writes the config as JSON to path, readable by the owner only since
// it may hold credentials.
func (c *Config) Save(path string) error {
	c.dropEmptySections()
	data, err := codec.MarshalDocument(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := utils.WriteFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("%w: write config: %w", apperr.ErrIO, err)
	}
	c.Path = path
	return nil
}

func (c *Config) RegistryPath() string { return filepath.Join(c.DataDir, registryFile) }
func (c *Config) HistoryPath() string  { return filepath.Join(c.DataDir, historyFile) }
func (c *Config) LockPath() string     { return filepath.Join(c.DataDir, lockFile) }
func (c *Config) TmpDir() string       { return filepath.Join(c.DataDir, tmpDir) }

// LogFile is the path of a log file in the data dir. It also works before
// Validate has resolved DataDir.
func (c *Config) LogFile(name string) (string, error) {
	dir, err := utils.ResolvePath(c.DataDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, logsDir, name), nil
}

// Describe is a one line summary of the remote with secrets masked.
func (r *Remote) Describe() string {
	switch r.Type {
	case RemoteLocalFS:
		return "localfs " + r.Folder
	case RemoteS3:
		if r.S3 == nil {
			return "s3"
		}
		desc := "s3://" + r.S3.Bucket
		if r.S3.Prefix != "" {
			desc += "/" + strings.Trim(r.S3.Prefix, "/")
		}
		if r.S3.AccessKey != "" {
			desc += " (key " + utils.MaskSecret(r.S3.AccessKey) + ")"
		}
		return desc
	case RemoteWebDAV:
		if r.WebDAV == nil {
			return "webdav"
		}
		desc := "webdav " + r.WebDAV.URL
		if r.WebDAV.Username != "" {
			desc += " (user " + r.WebDAV.Username + ")"
		}
		return desc
	default:
		return r.Type
	}
}

// viper fills nested structs for every bound key, even when nothing is set
func (c *Config) dropEmptySections() {
	if c.Remote.S3 != nil && *c.Remote.S3 == (s3store.Config{}) {
		c.Remote.S3 = nil
	}
	if c.Remote.WebDAV != nil && *c.Remote.WebDAV == (davstore.Config{}) {
		c.Remote.WebDAV = nil
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http or https url, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
