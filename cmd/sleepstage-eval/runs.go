package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sleepstage-eval/internal/ledger"
)

var (
	runsDB   string
	runsLast int
)

// runsCmd lists previously recorded evaluations.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded evaluation runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := ledger.NewStore(runsDB)
		if err != nil {
			return reportErr(err)
		}
		defer store.Close()

		runs, err := store.Recent(runsLast)
		if err != nil {
			return reportErr(err)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN ID\tCREATED\tCHANNEL\tCHECKPOINT\tSAMPLES\tACC\tLOSS\tF1 MACRO")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.4f\t%.4f\t%.4f\n",
				r.RunID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Channel, r.Checkpoint,
				r.Samples, r.Accuracy, r.Loss, r.F1Macro)
		}
		return tw.Flush()
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsDB, "db", "results.db", "SQLite file written by --results-db")
	runsCmd.Flags().IntVar(&runsLast, "last", 20, "Number of runs to show")
	rootCmd.AddCommand(runsCmd)
}
