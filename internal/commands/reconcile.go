package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rvudash/rvudash/internal/model"
	"github.com/rvudash/rvudash/internal/reconcile"
)

func newReconcileCommand(opts *globalOptions) *cobra.Command {
	var filter filterFlags
	var logPath string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check a visit log against billed charges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := os.Open(logPath)
			if err != nil {
				return fmt.Errorf("opening visit log: %w", err)
			}
			defer file.Close()

			ds, _, err := opts.ingestAll(cmd)
			if err != nil {
				return err
			}
			f, err := filter.apply(ds)
			if err != nil {
				return err
			}

			res, err := reconcile.Run(f.Records, file)
			if err != nil {
				return err
			}
			opts.log.Info().
				Int("log", len(res.Log)).
				Int("validated", len(res.Validated)).
				Int("diff", len(res.Diff)).
				Msg("reconciled")
			writeReconcile(cmd.OutOrStdout(), res)
			return nil
		},
	}

	filter.register(cmd)
	cmd.Flags().StringVar(&logPath, "log", "", "visit log file: date,mrn,encounter id,cpt per line (required)")
	_ = cmd.MarkFlagRequired("log")

	return cmd
}

func writeReconcile(w io.Writer, res reconcile.Result) {
	fmt.Fprintf(w, "Visit log: %d entries, %d billed charges checked\n", len(res.Log), len(res.Billing))
	fmt.Fprintf(w, "Validated: %d\n", len(res.Validated))
	fmt.Fprintf(w, "Not found in billing: %d\n", len(res.Diff))
	for _, e := range res.Diff {
		fmt.Fprintf(w, "  %s  %-10s %-12s %s\n", dateOrDash(e), e.MRN, e.EncounterID, e.CPT)
	}
}

func dateOrDash(e model.VisitLogEntry) string {
	if e.Date.IsZero() {
		return "----------"
	}
	return model.DateKey(e.Date)
}
