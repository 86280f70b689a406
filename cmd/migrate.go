package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the pipeline tables",
	Long:  "Creates the base, archive, ledger, and monitoring tables if they do not exist.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		zap.L().Info("migration complete",
			zap.String("driver", cfg.Store.Driver),
			zap.String("base_table", cfg.Ingest.BaseTable),
			zap.String("archive_table", cfg.Ingest.ArchiveTable),
			zap.String("ledger_table", cfg.Ingest.LedgerTable),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
