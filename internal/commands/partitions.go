package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rvudash/rvudash/internal/dataset"
	"github.com/rvudash/rvudash/internal/export"
	"github.com/rvudash/rvudash/internal/partition"
	"github.com/rvudash/rvudash/internal/stats"
)

func newPartitionsCommand(opts *globalOptions) *cobra.Command {
	var filter filterFlags
	var name string

	cmd := &cobra.Command{
		Use:   "partitions",
		Short: "Show partition sizes, or the rows of one partition as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, _, err := opts.ingestAll(cmd)
			if err != nil {
				return err
			}
			f, err := filter.apply(ds)
			if err != nil {
				return err
			}
			return writePartitions(cmd.OutOrStdout(), f, name)
		},
	}

	filter.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "print the rows of this partition")

	return cmd
}

func writePartitions(w io.Writer, f *dataset.Filtered, name string) error {
	switch name {
	case "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "partition\trows\tencounters\twrvu")
		for _, n := range partition.Names() {
			rows := f.Partitions[n]
			total := decimal.Zero
			for _, c := range rows {
				total = total.Add(c.WRVU)
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", n, len(rows), stats.Encounters(rows), export.FormatValue(total))
		}
		fmt.Fprintf(tw, "%s\t%d\t\t\n", partition.OutptNonEncWRVUs, len(f.NonEncounterWRVUs))
		return tw.Flush()
	case partition.OutptNonEncWRVUs:
		return export.WriteSummary(w, f.NonEncounterWRVUs)
	default:
		rows, ok := f.Partitions[name]
		if !ok {
			return fmt.Errorf("unknown partition %q (have %v)", name, append(partition.Names(), partition.OutptNonEncWRVUs))
		}
		return export.WriteCharges(w, rows)
	}
}
