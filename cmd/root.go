package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ftplog-ingest/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ftplog-ingest",
	Short: "FTP transfer-log ingestion pipeline",
	Long:  "Ingests NDJSON transfer logs from an object store into structured and archive tables, with per-file idempotency and a processed-files ledger.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
