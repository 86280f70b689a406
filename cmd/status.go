package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ftplog-ingest/internal/ingest"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the processed-files ledger",
	Long:  "Displays the most recent file-processing outcomes from the ledger.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		entries, err := env.Store.ListLedger(ctx, statusLimit)
		if err != nil {
			return eris.Wrap(err, "ledger status")
		}

		if len(entries) == 0 {
			zap.L().Info("no ledger entries found")
			return nil
		}

		formatLedgerEntries(os.Stdout, entries)
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 50, "maximum entries to show")
	rootCmd.AddCommand(statusCmd)
}

// formatLedgerEntries writes a tabular representation of ledger entries to w.
func formatLedgerEntries(out io.Writer, entries []ingest.LedgerEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PROCESSED\tSTATUS\tFILE\tLOADED\tEXPECTED\tPARSE ERRS\tDURATION\tERROR")
	_, _ = fmt.Fprintln(w, "---------\t------\t----\t------\t--------\t----------\t--------\t-----")

	for _, e := range entries {
		errMsg := ""
		if e.ErrorMessage != "" {
			errMsg = truncate(e.ErrorMessage, 60)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			e.ProcessedTime.Format("2006-01-02 15:04"),
			e.Status,
			e.OriginatingFile,
			e.RowsLoaded,
			e.RowsExpected,
			e.ParseErrors,
			e.Duration.Round(time.Millisecond).String(),
			errMsg,
		)
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
