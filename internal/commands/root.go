package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/simonhull/norms"
	"github.com/simonhull/norms/pkg/cache"
	"github.com/simonhull/norms/pkg/config"
	"github.com/simonhull/norms/pkg/engine"
	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/output"
)

// globals holds the persistent flags and the state PersistentPreRunE
// derives from them
type globals struct {
	root       string
	configPath string
	verbose    bool
	logLevel   string
	logFile    string

	cfg *config.Config
	log logger.Logger
}

// RootCmd creates the root command with every subcommand registered
func RootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   "norms",
		Short: "Check changed files against the conventions of their repository",
		Long: `norms learns how a repository is already written and reports where
new or modified files diverge from it.

For every changed file norms:
• Classifies its role (Controller, Service, Security/Voter, ...)
• Picks 3 to 5 typical files of the same role as references
• Compares naming, imports, dependency and error handling patterns

Example:
  norms check
  norms check --files src/Controller/ReportController.php
  norms pattern --role Voter
  norms todos auth`,
		Version:       norms.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.root, "root", ".", "Repository root to analyze")
	flags.StringVar(&g.configPath, "config", "", "Path to configuration file (default <root>/norms.yaml)")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "Enable verbose output for debugging")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error or silent")
	flags.StringVar(&g.logFile, "log-file", "", "Also write logs to a rotating file")

	cmd.AddCommand(CheckCmd(g))
	cmd.AddCommand(PatternCmd(g))
	cmd.AddCommand(TodosCmd(g))
	cmd.AddCommand(ServeCmd(g))
	cmd.AddCommand(InitCmd(g))
	cmd.AddCommand(VersionCmd())

	return cmd
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := RootCmd().ExecuteContext(ctx)
	code := ExitCode(err)
	if err != nil && !isViolationExit(err) {
		output.Error(err.Error())
	}
	return code
}

func (g *globals) setup(cmd *cobra.Command) error {
	output.SetWriter(cmd.ErrOrStderr())
	output.SetVerbose(g.verbose)

	root, err := filepath.Abs(g.root)
	if err != nil {
		return &InvocationError{Reason: fmt.Sprintf("resolving root %s: %v", g.root, err)}
	}
	g.root = root

	cfg, err := config.Load(g.root, g.configPath)
	if err != nil {
		return &InvocationError{Reason: err.Error()}
	}
	g.cfg = cfg

	levelName := cfg.Log.Level
	if g.logLevel != "" {
		levelName = g.logLevel
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return &InvocationError{Reason: err.Error()}
	}
	if g.verbose {
		level = logger.LevelDebug
	}

	logFile := cfg.Log.File
	if g.logFile != "" {
		logFile = g.logFile
	}
	var log logger.Logger
	if logFile != "" {
		log = logger.NewFileLogger(level, cmd.ErrOrStderr(), logFile)
	} else {
		log = logger.NewLogger(level, cmd.ErrOrStderr())
	}
	g.log = log.WithFields(logger.F("run", uuid.NewString()))
	logger.SetDefault(g.log)

	g.log.Debug("Configuration loaded",
		logger.F("root", g.root),
		logger.F("references", cfg.References.Count),
		logger.F("cache", cfg.Cache.Enabled))
	return nil
}

// engine builds the pipeline for one command. The returned closer
// releases the record cache when one was opened.
func (g *globals) engine() (*engine.Engine, io.Closer, error) {
	eng, err := engine.New(g.cfg)
	if err != nil {
		return nil, nil, &InvocationError{Reason: err.Error()}
	}
	eng = eng.WithLogger(g.log)

	if !g.cfg.Cache.Enabled {
		return eng, nopCloser{}, nil
	}

	dir := g.cfg.Cache.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(g.root, dir)
	}
	c, err := cache.Open(dir, g.log)
	if err != nil {
		// the cache only saves work, so run without it
		g.log.Warn("Record cache unavailable", logger.F("dir", dir), logger.F("error", err))
		return eng, nopCloser{}, nil
	}
	return eng.WithCache(c), c, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func isViolationExit(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Code == ExitViolations && exitErr.Err == nil
}
