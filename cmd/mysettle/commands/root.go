// Package commands implements the mysettle command line: the API server and
// the operator tools that read the same Redis ledger.
package commands

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mysettle/mysettle/internal/config"
	"github.com/mysettle/mysettle/internal/printer"
	"github.com/mysettle/mysettle/internal/workflow"
	"github.com/mysettle/mysettle/pkg/ledger"
)

var versionString = "dev"

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// app is the state shared by every subcommand once the root has run.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand builds the complete command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "mysettle",
		Short: "mySettle - digital accident settlement for drivers and police",
		Long: `mySettle pairs the two drivers of a road accident in a shared case,
collects their evidence and statements, and walks the case through police
review and signing to the final PDRM report set.

Run "mysettle serve" for the HTTP API; the other commands inspect and follow
cases directly in Redis.`,
		Version: versionString,
		// If no subcommand is specified, show help
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(output(cmd))
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "mysettle.yml", "Path to the configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newInitCommand(),
		newServeCommand(a),
		newDashboardCommand(a),
		newWatchCommand(a),
		newWaitCommand(a),
		newReportsCommand(a),
	)
	return root
}

// Execute runs the command tree against the process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

// init loads the configuration and builds the logger.
func (a *app) init(p *printer.Printer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return p.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"Config": a.configPath},
			[]string{"Fix the file, or remove it to run with defaults and environment overrides"},
		)
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.Logging, a.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

func newLogger(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

// connect opens the ledger and checks Redis is reachable.
func (a *app) connect(ctx context.Context, p *printer.Printer) (*ledger.Client, error) {
	opts, err := redis.ParseURL(a.cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client, err := ledger.NewClient(opts, a.cfg.Redis.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, p.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis: %v", err),
			map[string]string{
				"Redis":     a.cfg.Redis.URL,
				"Namespace": a.cfg.Redis.Namespace,
			},
			[]string{
				"Check the server is running and redis.url in the config (or REDIS_URL) points at it",
			},
		)
	}
	return client, nil
}

// service builds the workflow service from the loaded configuration.
// A non-empty outputDir replaces reports.output_dir.
func (a *app) service(client *ledger.Client, outputDir string) *workflow.Service {
	if outputDir == "" {
		outputDir = a.cfg.Reports.OutputDir
	}
	return workflow.NewService(client, workflow.Options{
		OTPTTL:      a.cfg.Session.OTPTTL,
		JoinWindow:  a.cfg.Session.JoinWindow,
		MeetBaseURL: a.cfg.Session.MeetBaseURL,
		OutputDir:   outputDir,
	}, a.logger)
}

func output(cmd *cobra.Command) *printer.Printer {
	return printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
}
