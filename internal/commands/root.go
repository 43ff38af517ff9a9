package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rvudash/rvudash/internal/buildinfo"
	"github.com/rvudash/rvudash/internal/config"
	"github.com/rvudash/rvudash/internal/dataset"
	"github.com/rvudash/rvudash/internal/ingest"
	"github.com/rvudash/rvudash/internal/metrics"
	"github.com/rvudash/rvudash/internal/model"
	"github.com/rvudash/rvudash/internal/runlog"
)

// globalOptions holds the persistent flags and what PersistentPreRunE builds
// from them.
type globalOptions struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string

	log zerolog.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "rvudash",
		Short:   "RVU production statistics from billing exports",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.FileName, "config file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "console", "log format (console or json)")

	rootCmd.AddCommand(
		newInitCommand(),
		newIngestCommand(opts),
		newStatsCommand(opts),
		newPartitionsCommand(opts),
		newReconcileCommand(opts),
		newExportCommand(opts),
		newWatchCommand(opts),
		newHistoryCommand(opts),
	)

	return rootCmd
}

func (o *globalOptions) setup(w io.Writer) error {
	level, err := zerolog.ParseLevel(o.logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q", o.logLevel)
	}
	switch o.logFormat {
	case "json":
		o.log = zerolog.New(w).With().Timestamp().Logger()
	case "console":
		o.log = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()
	default:
		return fmt.Errorf("invalid --log-format %q (want console or json)", o.logFormat)
	}
	o.log = o.log.Level(level)

	return config.LoadEnv(o.envFile)
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, err
	}
	o.log.Debug().Str("config", o.configPath).Msg("config loaded")
	return cfg, nil
}

// ingestAll runs one ingestion with the configured sources and records it in
// the run history.
func (o *globalOptions) ingestAll(cmd *cobra.Command) (*dataset.Dataset, *metrics.Metrics, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	m := metrics.New()
	svc, err := ingest.FromConfig(cfg, o.log, m)
	if err != nil {
		return nil, nil, err
	}
	sources, err := ingest.Sources(cfg)
	if err != nil {
		return nil, nil, err
	}
	ds, err := svc.Initialize(cmd.Context(), sources)
	o.recordRun(cfg, cmd.Name(), ds, m.Snapshot(), err)
	if errors.Is(err, ingest.ErrNoData) {
		return nil, m, fmt.Errorf("%w: check data.sources or data.dir in %s", err, o.configPath)
	}
	if err != nil {
		return nil, m, err
	}
	return ds, m, nil
}

// recordRun appends one run to the history file. Failing to write history
// never fails the command.
func (o *globalOptions) recordRun(cfg *config.Config, command string, ds *dataset.Dataset, snap metrics.Snapshot, runErr error) {
	if cfg.Ingest.History == "" {
		return
	}
	e := runlog.Entry{
		Timestamp:      time.Now().UTC(),
		Command:        command,
		SourcesFetched: snap.SourcesFetched,
		SourcesSkipped: snap.SourcesSkipped,
		Took:           snap.LastReload,
	}
	if ds != nil {
		e.DatasetID = ds.ID
		e.Rows = ds.Len()
	}
	if runErr != nil {
		e.Error = runErr.Error()
		e.Took = 0
	}
	if err := runlog.Append(cfg.Ingest.History, []runlog.Entry{e}); err != nil {
		o.log.Warn().Err(err).Str("history", cfg.Ingest.History).Msg("recording run")
	}
}

// filterFlags selects one provider and date range.
type filterFlags struct {
	provider string
	start    string
	end      string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "provider alias (required)")
	cmd.Flags().StringVar(&f.start, "start", "", "first day, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&f.end, "end", "", "last day, YYYY-MM-DD (default: open-ended)")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("start")
}

func (f *filterFlags) dates() (start, end time.Time, err error) {
	return dateRange("--start", f.start, "--end", f.end)
}

// dateRange parses a required start and optional end day. The flag names
// label the errors.
func dateRange(startFlag, startValue, endFlag, endValue string) (start, end time.Time, err error) {
	if start, err = parseDay(startFlag, startValue); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if endValue != "" {
		if end, err = parseDay(endFlag, endValue); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%s %s is before %s %s", endFlag, endValue, startFlag, startValue)
	}
	return start, end, nil
}

func (f *filterFlags) apply(ds *dataset.Dataset) (*dataset.Filtered, error) {
	start, end, err := f.dates()
	if err != nil {
		return nil, err
	}
	filtered := ds.Filter(f.provider, start, end)
	if filtered == nil {
		return nil, noProviderError(f.provider, ds)
	}
	return filtered, nil
}

func noProviderError(provider string, ds *dataset.Dataset) error {
	return fmt.Errorf("no data for provider %q (have %v)", provider, ds.Providers())
}

func parseDay(flag, value string) (time.Time, error) {
	t, err := time.Parse(model.DateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: want YYYY-MM-DD", flag, value)
	}
	return t, nil
}
