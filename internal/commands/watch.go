package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rvudash/rvudash/internal/config"
	"github.com/rvudash/rvudash/internal/dataset"
	"github.com/rvudash/rvudash/internal/ingest"
	"github.com/rvudash/rvudash/internal/metrics"
	"github.com/rvudash/rvudash/internal/store"
	"github.com/rvudash/rvudash/internal/watch"
)

func newWatchCommand(opts *globalOptions) *cobra.Command {
	var provider, start, end string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the dataset whenever exports in the data directory change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			sel := selection{provider: provider}
			if provider != "" {
				filter := filterFlags{provider: provider, start: start, end: end}
				if sel.start, sel.end, err = filter.dates(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, cfg, sel)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "provider alias to log statistics for after each reload")
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (required with --provider)")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	cmd.MarkFlagsRequiredTogether("provider", "start")

	return cmd
}

// selection is the optional provider and range logged after each reload.
type selection struct {
	provider   string
	start, end time.Time
}

func runWatch(ctx context.Context, opts *globalOptions, cfg *config.Config, sel selection) error {
	m := metrics.New()
	svc, err := ingest.FromConfig(cfg, opts.log, m)
	if err != nil {
		return err
	}
	st := store.New(svc, func() ([]string, error) { return ingest.Sources(cfg) }, store.Options{
		CacheSize: cfg.Cache.FilterEntries,
		Logger:    opts.log,
		Metrics:   m,
	})

	var prev metrics.Snapshot
	report := func(ds *dataset.Dataset, err error) {
		snap := m.Snapshot()
		opts.recordRun(cfg, "watch", ds, snap.Since(prev), err)
		prev = snap
		if err != nil {
			opts.log.Error().Err(err).Msg("reload failed")
			return
		}
		opts.log.Info().
			Str("dataset", ds.ID.String()).
			Int("rows", ds.Len()).
			Int64("reloads", snap.Reloads).
			Dur("took", snap.LastReload.Round(time.Millisecond)).
			Msg("reloaded")
		if sel.provider == "" {
			return
		}
		f, err := st.Filter(sel.provider, sel.start, sel.end)
		if err != nil {
			opts.log.Warn().Err(err).Msg("no statistics")
			return
		}
		if f == nil {
			opts.log.Warn().Err(noProviderError(sel.provider, ds)).Msg("no statistics")
			return
		}
		opts.log.Info().
			Str("provider", f.Provider).
			Str("ttl_wrvu", f.Stats.TotalWRVU.StringFixed(2)).
			Int("ttl_encs", f.Stats.TotalEncounters).
			Str("wrvu_per_encs", f.Stats.WRVUPerEncounter.StringFixed(2)).
			Msg("statistics")
	}

	// A failed first load is reported but does not stop the watcher; new
	// exports may arrive later.
	report(st.Reload(ctx))

	w := watch.New(cfg.Data.Dir, st, watch.Options{
		Debounce: cfg.Watch.Debounce,
		Logger:   opts.log,
		OnReload: report,
	})
	return w.Run(ctx)
}
