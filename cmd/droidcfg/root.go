package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/droidcfg/internal/config"
	"github.com/kingrea/droidcfg/internal/configure"
	"github.com/kingrea/droidcfg/internal/logbook"
	"github.com/kingrea/droidcfg/internal/logging"
)

// cli holds the state shared by every subcommand.
type cli struct {
	root     string
	logLevel string

	logger   *zap.Logger
	closeLog func() error
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}
	cmd := &cobra.Command{
		Use:   "droidcfg",
		Short: "Resolve shared configuration for a multi-project Android workspace",
		Long: `droidcfg applies workspace-wide configuration to every Android project:
build output is redirected to a shared directory, repositories are inherited,
library projects are pinned to the workspace SDK, and projects that do not
declare a namespace get the package from their AndroidManifest.xml.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.closeLog != nil {
				return c.closeLog()
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&c.root, "root", ".", "workspace directory")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "console log level (debug, info, warn, error)")

	cmd.AddCommand(
		c.newInitCmd(),
		c.newConfigureCmd(),
		c.newProjectsCmd(),
		c.newReportCmd(),
		c.newCleanCmd(),
		c.newWatchCmd(),
	)
	return cmd
}

// setup resolves the workspace and builds the logger. The JSON file sink is
// only attached once `droidcfg init` has created the state directory.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	abs, err := filepath.Abs(c.root)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	c.root = abs

	opts := logging.Options{Level: c.logLevel, Console: cmd.ErrOrStderr()}
	if stateDirExists(abs) {
		opts.FilePath = filepath.Join(abs, config.StateDir, "logs", "droidcfg.log")
	}
	logger, closeFn, err := logging.New(opts)
	if err != nil {
		return err
	}
	c.logger = logger.With(zap.String("workspace", abs))
	c.closeLog = closeFn
	return nil
}

// newEngine loads settings and wires an engine. History is only opened for
// runs that write.
func (c *cli) newEngine(dryRun bool) (*configure.Engine, *config.Config, error) {
	cfg, err := config.Load(c.root)
	if err != nil {
		return nil, nil, err
	}
	var book *logbook.Logbook
	if !dryRun {
		if book, err = logbook.New(cfg.HistoryPath()); err != nil {
			return nil, nil, err
		}
	}
	engine, err := c.engineFor(cfg, book, dryRun)
	if err != nil {
		return nil, nil, err
	}
	return engine, cfg, nil
}

// newCleanEngine wires an engine that records history only in workspaces
// droidcfg has already initialized.
func (c *cli) newCleanEngine() (*configure.Engine, error) {
	cfg, err := config.Load(c.root)
	if err != nil {
		return nil, err
	}
	return c.engineFor(cfg, existingLogbook(cfg), false)
}

func (c *cli) engineFor(cfg *config.Config, book *logbook.Logbook, dryRun bool) (*configure.Engine, error) {
	return configure.New(configure.Options{
		Config:  cfg,
		Logger:  c.logger,
		Logbook: book,
		DryRun:  dryRun,
		Version: version,
	})
}

// existingLogbook opens the history file without creating the state
// directory. Nil when droidcfg has never written to this workspace.
func existingLogbook(cfg *config.Config) *logbook.Logbook {
	if !stateDirExists(cfg.Root) {
		return nil
	}
	book, err := logbook.New(cfg.HistoryPath())
	if err != nil {
		return nil
	}
	return book
}

func stateDirExists(root string) bool {
	info, err := os.Stat(filepath.Join(root, config.StateDir))
	return err == nil && info.IsDir()
}
