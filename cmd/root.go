// =============================================================================
// Sales Aggregator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Running the root
// command with a directory aggregates that directory:
//
// COBRA CLI STRUCTURE:
//   rootCmd (calcsales <dir>)
//   ├── validateCmd (calcsales validate <dir>)
//   └── versionCmd (calcsales version)
//
// CONFIGURATION PRECEDENCE:
//   flag > CALCSALES_* environment variable > YAML file > built-in default
//
// The root command is responsible for:
//   1. Setting up global flags
//   2. Loading the configuration file and overlaying flags/environment
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/2507-taguchi-keita/CalculateSales/internal/config"
	"github.com/2507-taguchi-keita/CalculateSales/internal/types"
	"github.com/2507-taguchi-keita/CalculateSales/internal/validation"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.trai.ch/zerr"
)

// envPrefix prefixes every environment variable read by the CLI.
const envPrefix = "CALCSALES"

// Viper keys. Environment variables are CALCSALES_<KEY>.
const (
	keyConfig     = "config"
	keyLogLevel   = "log_level"
	keyLogFormat  = "log_format"
	keyProgress   = "progress"
	keyXLSXOutput = "xlsx_output"
	keyReportFile = "report_file"
	keyOrder      = "order"
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd is the command run by main.
var rootCmd = newRootCmd()

// app carries the state shared by the commands of one root command.
type app struct {
	v   *viper.Viper
	cfg *config.MainConfig
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "calcsales <dir>",
		Short: "Sales Aggregator - Sum sales per branch and per commodity",
		Long: `calcsales reads the branch and commodity definition files of a sales
directory, validates every NNNNNNNN.rcd transaction file and writes the
per-branch and per-commodity totals:

  <dir>/branch.lst, <dir>/commodity.lst      definitions (code,name)
  <dir>/00000001.rcd, 00000002.rcd, ...      transactions (branch, commodity, amount)
  <dir>/branch.out, <dir>/commodity.out      summaries (code,name,total)

Nothing is written if any file fails validation.

Example Usage:
  calcsales ./sales                       # Aggregate ./sales
  calcsales validate ./sales              # Check ./sales without writing
  calcsales --xlsx summary.xlsx ./sales   # Also export a workbook`,

		Args:              exactlyOneDir,
		PersistentPreRunE: a.initConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProcess(cmd, args[0], false)
		},

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to the YAML configuration file (optional)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (console, json)")
	flags.Bool("progress", false, "Show a progress bar over the transaction files")
	flags.String("xlsx", "", "Also export both summaries to this XLSX workbook")
	flags.String("report", "", "Also write a run report to this file")
	flags.String("order", "", "Summary row order (sorted, insertion, unordered)")

	bindings := map[string]string{
		keyConfig:     "config",
		keyLogLevel:   "log-level",
		keyLogFormat:  "log-format",
		keyProgress:   "progress",
		keyXLSXOutput: "xlsx",
		keyReportFile: "report",
		keyOrder:      "order",
	}
	for key, flag := range bindings {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(a.newValidateCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// exactlyOneDir rejects any argument count other than one.
func exactlyOneDir(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return validation.New(validation.UsageError, "",
			"expected exactly one directory argument, got %d", len(args))
	}
	return nil
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command and exits with status 1 on any error.
// This is called by main.main().
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		logFailure(ctx, slog.Default(), err)
		printFailure(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// logFailure records the error and its zerr metadata at debug level. The
// user-facing report is printFailure.
func logFailure(ctx context.Context, logger *slog.Logger, err error) {
	logger.DebugContext(ctx, "run failed",
		slog.String("kind", validation.KindOf(err).String()),
		slog.Any("error", err))
}

// =============================================================================
// CONFIGURATION INITIALIZATION
// =============================================================================

// initConfig loads the configuration and sets up logging.
func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadMainConfig(a.v.GetString(keyConfig))
	if err != nil {
		return zerr.With(err, "config", a.v.GetString(keyConfig))
	}

	overrides := map[string]*string{
		keyLogLevel:   &cfg.LogLevel,
		keyLogFormat:  &cfg.LogFormat,
		keyXLSXOutput: &cfg.XLSXOutput,
		keyReportFile: &cfg.ReportFile,
	}
	for key, field := range overrides {
		if a.v.IsSet(key) && a.v.GetString(key) != "" {
			*field = a.v.GetString(key)
		}
	}
	if order := a.v.GetString(keyOrder); order != "" {
		cfg.Output.Order = types.Order(order)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := setupLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	a.cfg = cfg
	return nil
}

// setupLogging installs the default slog logger on stderr.
func setupLogging(level, format string) error {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}

	switch format {
	case "console":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}

	slog.SetDefault(slog.New(handler))

	return nil
}
