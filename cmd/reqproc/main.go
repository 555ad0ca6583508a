package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/studiowebux/reqproc/internal/cli"
	"github.com/studiowebux/reqproc/internal/config"
	"github.com/studiowebux/reqproc/internal/logging"
)

var (
	version = "0.1.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reqproc",
	Short: "Synthetic request processor - pipeline latency harness",
	Long: `reqproc generates synthetic requests, processes them on a pool of workers
and reports response latencies.

Latencies (milliseconds, ascending) and the summary line are written to the
output file; the summary line is also printed. Runs are recorded in
~/.reqproc/reqproc.db unless --history=false.

Every flag can also be set in ~/.reqproc/config.yaml (or ./reqproc.yaml) and
through REQPROC_* environment variables, e.g. REQPROC_WORKERS=8.

Examples:
  reqproc run --response-size 4 --requests 3 --workers 2
  reqproc run --response-size 1024 --requests 100000 --workers 8 --metrics-file run.prom
  reqproc history list -o json --filter "[?status=='aborted'].runKey"
  reqproc history show 2ePvxZ3Tu2GBV4X5jkJQ8WLdNxa --samples`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		logger, err := logging.New(logging.Options{
			Level:       settings.LogLevel,
			Development: settings.LogDevelopment,
		})
		if err != nil {
			return err
		}
		defer logger.Sync()

		return cli.Run(cmd.Context(), cli.RunOptions{
			Settings: settings,
			Logger:   logger,
			Stdout:   cmd.OutOrStdout(),
			Stderr:   cmd.ErrOrStderr(),
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := historyOptions(cmd)
		if err != nil {
			return err
		}
		return cli.HistoryList(opts)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id|run-key>",
	Short: "Show one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := historyOptions(cmd)
		if err != nil {
			return err
		}
		return cli.HistoryShow(opts, args[0])
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id|run-key>",
	Short: "Delete a recorded run and its samples",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := historyOptions(cmd)
		if err != nil {
			return err
		}
		return cli.HistoryDelete(opts, args[0])
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate finished runs per parameter set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := historyOptions(cmd)
		if err != nil {
			return err
		}
		return cli.HistoryStats(opts)
	},
}

// Flags for root command
var (
	flagConfigFile string
)

// Flags for history commands
var (
	flagDatabase string
	flagFormat   string
	flagFilter   string
	flagLimit    int
	flagSamples  bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfigFile, "config", "c", "", "Config file (default ./reqproc.yaml or ~/.reqproc/config.yaml)")

	// Run command flags; names match the config keys with dashes
	f := runCmd.Flags()
	f.Int(config.FlagName(config.KeyResponseSize), 0, "Characters per generated value (required)")
	f.Int(config.FlagName(config.KeyRequests), 0, "Number of requests to process (required)")
	f.IntP(config.FlagName(config.KeyWorkers), "w", 0, "Worker pool size (required)")
	f.Duration(config.FlagName(config.KeyDrainTimeout), config.DefaultDrainTimeout, "Collector wait per response before checking the stop flag")
	f.StringP(config.FlagName(config.KeyOutput), "o", config.DefaultOutput, "Latency report file (truncated)")
	f.Bool(config.FlagName(config.KeyHistory), true, "Record the run in the history database")
	f.String(config.FlagName(config.KeyDatabase), "", "History database path (default ~/.reqproc/reqproc.db)")
	f.String(config.FlagName(config.KeyMetricsFile), "", "Write pipeline metrics in Prometheus text format to this file")
	f.String(config.FlagName(config.KeyLogLevel), config.DefaultLogLevel, "Log level (debug/info/warn/error)")
	f.Bool(config.FlagName(config.KeyLogDevelopment), false, "Human-readable development logging")
	f.Bool(config.FlagName(config.KeyNoTUI), false, "Log progress instead of showing the progress bar")

	// History flags
	historyCmd.PersistentFlags().StringVar(&flagDatabase, "database", "", "History database path (default ~/.reqproc/reqproc.db)")
	historyCmd.PersistentFlags().StringVarP(&flagFormat, "output", "o", cli.FormatText, "Output format (json/yaml/text)")
	historyCmd.PersistentFlags().StringVar(&flagFilter, "filter", "", "JMESPath expression applied to the JSON output")
	historyListCmd.Flags().IntVarP(&flagLimit, "limit", "n", 20, "Maximum number of runs (0 for all)")
	historyShowCmd.Flags().BoolVar(&flagSamples, "samples", false, "Include latency samples")

	// Add subcommands
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyStatsCmd)
	rootCmd.AddCommand(runCmd, historyCmd)
}

// loadSettings initializes ~/.reqproc and resolves run settings from flags, env and config file
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	if err := config.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	return config.Load(viper.New(), cmd.Flags(), flagConfigFile)
}

func historyOptions(cmd *cobra.Command) (cli.HistoryOptions, error) {
	if err := config.Initialize(); err != nil {
		return cli.HistoryOptions{}, fmt.Errorf("failed to initialize config: %w", err)
	}

	database := flagDatabase
	if database == "" {
		database = config.DatabasePath
	}

	return cli.HistoryOptions{
		Database:     database,
		OutputFormat: flagFormat,
		Filter:       flagFilter,
		Limit:        flagLimit,
		Samples:      flagSamples,
		Stdout:       cmd.OutOrStdout(),
	}, nil
}
