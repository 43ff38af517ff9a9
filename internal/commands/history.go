package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rvudash/rvudash/internal/runlog"
)

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	var last int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past ingestion runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Ingest.History == "" {
				return fmt.Errorf("run history is disabled (ingest.history is empty in %s)", opts.configPath)
			}
			entries, err := runlog.Read(cfg.Ingest.History)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			return writeHistory(cmd.OutOrStdout(), runlog.Tail(entries, last))
		},
	}

	cmd.Flags().IntVarP(&last, "last", "n", 20, "show the last N runs (0 for all)")

	return cmd
}

func writeHistory(w io.Writer, entries []runlog.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "time\tcommand\trows\tsources\ttook\tresult")
	for _, e := range entries {
		result := "ok"
		if e.Error != "" {
			result = e.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Command, e.Rows,
			e.SourcesFetched, e.Took.Round(time.Millisecond), result)
	}
	return tw.Flush()
}
