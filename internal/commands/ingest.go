package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rvudash/rvudash/internal/dataset"
	"github.com/rvudash/rvudash/internal/metrics"
	"github.com/rvudash/rvudash/internal/model"
	"github.com/rvudash/rvudash/internal/providers"
)

func newIngestCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Ingest the configured billing exports and summarize them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ds, m, err := opts.ingestAll(cmd)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), ds, m.Snapshot(), providers.New(cfg.Providers))
			return nil
		},
	}
}

func printSummary(w io.Writer, ds *dataset.Dataset, snap metrics.Snapshot, dir *providers.Directory) {
	fmt.Fprintf(w, "Dataset %s\n", ds.ID)
	fmt.Fprintf(w, "Rows: %d\n", ds.Len())
	fmt.Fprintf(w, "Posted: %s to %s\n", model.DateKey(ds.Start), model.DateKey(ds.End))
	fmt.Fprintf(w, "Sources: %d fetched, %d skipped, %d failed\n",
		snap.SourcesFetched, snap.SourcesSkipped, snap.SourcesFailed)
	fmt.Fprintln(w, "Providers:")
	configured := make(map[string]bool)
	for _, alias := range dir.Aliases() {
		configured[alias] = true
	}
	for _, alias := range ds.Providers() {
		note := ""
		if !configured[alias] {
			note = " (not in providers config)"
		}
		fmt.Fprintf(w, "  %-12s %d rows%s\n", alias, len(ds.ByProvider[alias]), note)
	}

	var idle []string
	for _, alias := range dir.Aliases() {
		if _, ok := ds.ByProvider[alias]; !ok {
			idle = append(idle, alias)
		}
	}
	if len(idle) > 0 {
		fmt.Fprintf(w, "No rows: %s\n", strings.Join(idle, ", "))
	}
}
