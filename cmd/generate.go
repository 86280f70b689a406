package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ftplog-ingest/internal/gen"
)

var (
	genLines     int
	genMalformed float64
	genBlank     float64
	genMissing   float64
	genSeed      int64
	genOut       string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic NDJSON log file",
	Long:  "Writes synthetic transfer-log NDJSON for testing, with configurable malformed-line and blank-line rates.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := gen.New(gen.Options{
			Lines:            genLines,
			MalformedRate:    genMalformed,
			BlankRate:        genBlank,
			MissingFieldRate: genMissing,
			Seed:             genSeed,
		})

		out := os.Stdout
		if genOut != "" {
			f, err := os.Create(genOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", genOut)
			}
			defer f.Close()
			out = f
		}

		if err := g.WriteNDJSON(out); err != nil {
			return err
		}

		if genOut != "" {
			zap.L().Info("generated test data",
				zap.String("path", genOut),
				zap.Int("lines", genLines),
			)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().IntVar(&genLines, "lines", 100, "number of lines to generate")
	generateCmd.Flags().Float64Var(&genMalformed, "malformed", 0, "fraction of malformed lines")
	generateCmd.Flags().Float64Var(&genBlank, "blank", 0, "fraction of blank lines")
	generateCmd.Flags().Float64Var(&genMissing, "missing", 0, "per-record chance of a dropped optional field")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "random seed (0 = from clock)")
	generateCmd.Flags().StringVar(&genOut, "out", "", "output path (default stdout)")
	rootCmd.AddCommand(generateCmd)
}
