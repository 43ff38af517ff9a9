package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rvudash/rvudash/internal/export"
)

func newExportCommand(opts *globalOptions) *cobra.Command {
	var filter filterFlags
	var outDir string
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write records, partitions and statistics to files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ff, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			ds, _, err := opts.ingestAll(cmd)
			if err != nil {
				return err
			}
			f, err := filter.apply(ds)
			if err != nil {
				return err
			}

			written, err := export.Dir(outDir, f, ff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d files to %s\n", len(written), outDir)
			return nil
		},
	}

	filter.register(cmd)
	cmd.Flags().StringVar(&outDir, "out", "exports", "output directory")
	cmd.Flags().StringVar(&format, "format", "csv", "file format (csv or parquet)")

	return cmd
}
