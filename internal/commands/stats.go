package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rvudash/rvudash/internal/dataset"
	"github.com/rvudash/rvudash/internal/export"
	"github.com/rvudash/rvudash/internal/stats"
)

func newStatsCommand(opts *globalOptions) *cobra.Command {
	var filter filterFlags
	var compareStart, compareEnd string
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print production statistics for a provider and date range",
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
			if compareStart == "" {
				return writeStats(cmd.OutOrStdout(), f.Stats, format)
			}

			cmp, err := compareFilter(ds, filter.provider, compareStart, compareEnd)
			if err != nil {
				return err
			}
			return writeComparison(cmd.OutOrStdout(), f.Stats, cmp.Stats, format)
		},
	}

	filter.register(cmd)
	cmd.Flags().StringVar(&compareStart, "compare-start", "", "first day of a range to compare against, YYYY-MM-DD")
	cmd.Flags().StringVar(&compareEnd, "compare-end", "", "last day of the comparison range, YYYY-MM-DD")
	cmd.Flags().StringVar(&format, "format", "table", "output format (table, json, yaml)")

	return cmd
}

// compareFilter selects the same provider over the comparison range. An
// empty range yields zeroed statistics, not an error.
func compareFilter(ds *dataset.Dataset, provider, start, end string) (*dataset.Filtered, error) {
	from, to, err := dateRange("--compare-start", start, "--compare-end", end)
	if err != nil {
		return nil, err
	}
	f := ds.Filter(provider, from, to)
	if f == nil {
		return nil, noProviderError(provider, ds)
	}
	return f, nil
}

func writeStats(w io.Writer, s stats.Stats, format string) error {
	switch format {
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, f := range s.Fields() {
			fmt.Fprintf(tw, "%s\t%s\n", f.Name, export.FormatValue(f.Value))
		}
		return tw.Flush()
	default:
		return encodeStats(w, s, format)
	}
}

// comparison is the json/yaml shape of stats with a comparison range.
type comparison struct {
	Range   stats.Stats `json:"range" yaml:"range"`
	Compare stats.Stats `json:"compare" yaml:"compare"`
}

func writeComparison(w io.Writer, cur, cmp stats.Stats, format string) error {
	switch format {
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "field\trange\tcompare")
		other := cmp.Fields()
		for i, f := range cur.Fields() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, export.FormatValue(f.Value), export.FormatValue(other[i].Value))
		}
		return tw.Flush()
	default:
		return encodeStats(w, comparison{Range: cur, Compare: cmp}, format)
	}
}

func encodeStats(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("invalid --format %q (want table, json or yaml)", format)
	}
}
