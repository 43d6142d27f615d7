package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/savesync/savesync/internal/apperr"
	"github.com/savesync/savesync/internal/client"
	"github.com/savesync/savesync/internal/config"
	"github.com/savesync/savesync/internal/logging"
	"github.com/savesync/savesync/internal/version"
	"github.com/spf13/cobra"
)

// app carries what the root command resolves for its subcommands.
type app struct {
	configPath string
	verbose    bool

	cfg        *config.Config
	logFile    string
	closeLog   func() error
	clientOpts []client.Option
}

func newApp(opts ...client.Option) *app {
	return &app{clientOpts: opts}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "savesync",
		Short:             "Keep game saves in step across machines",
		Version:           version.Detailed(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.SortFlags = false
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (default "+config.DefaultConfigPath+")")
	pf.String(config.DataDirFlag, "", "savesync data directory")
	pf.BoolVarP(&a.verbose, "verbose", "V", false, "debug output on the console")

	root.AddCommand(
		newInitCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newTrackCmd(a),
		newEditCmd(a),
		newUntrackCmd(a),
		newUploadCmd(a),
		newLoadCmd(a),
		newSyncCmd(a),
		newRemoteCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
		newConfigPathCmd(a),
	)
	return root
}

// setup loads the config and installs the logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ResolvePath(a.configPath), cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	if logFile, err := cfg.LogFile(logging.FileName); err == nil {
		a.logFile = logFile
	}
	closeLog, err := logging.Setup(logging.Options{
		Verbose: a.verbose,
		LogFile: a.logFile,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.closeLog = closeLog

	slog.Debug("savesync", "version", version.Short(), "config", cfg.Path, "args", os.Args[1:])
	return nil
}

func (a *app) close() {
	if a.closeLog == nil {
		return
	}
	if err := a.closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
	a.closeLog = nil
}

// openClient locks the data dir and opens the registries. The caller closes
// the client.
func (a *app) openClient(cmd *cobra.Command) (*client.Client, error) {
	return client.Open(cmd.Context(), a.cfg, a.clientOpts...)
}

func (a *app) execute(ctx context.Context, args []string) error {
	defer a.close()
	root := a.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func main() {
	config.LoadDotEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	a := newApp()
	err := a.execute(ctx, os.Args[1:])
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", red.Render("ERROR"), err)
		if !apperr.IsUserError(err) && a.logFile != "" {
			fmt.Fprintf(os.Stderr, "%s\n", gray.Render("details in "+a.logFile))
		}
		os.Exit(1)
	}
}
