package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Scheduled bulk SQL transform",
}

var etlRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ETL script once",
	Long:  "Reads the configured SQL script and executes it against the structured store. Prints the run result as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, runErr := env.Runner.Run(ctx)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)

		return runErr
	},
}

func init() {
	etlCmd.AddCommand(etlRunCmd)
	rootCmd.AddCommand(etlCmd)
}
