package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	processBucket  string
	processProfile string
)

var processCmd = &cobra.Command{
	Use:   "process OBJECT...",
	Short: "Ingest one or more log objects",
	Long:  "Runs the transform-and-load core for each named object. Non-matching and already-processed objects are skipped silently; any fatal error makes the command exit non-zero.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		profile, err := resolveProfile(processProfile)
		if err != nil {
			return err
		}
		bucket := processBucket
		if bucket == "" {
			bucket = profile.Bucket
		}
		if bucket == "" {
			return eris.New("no bucket: set --bucket or ingest.bucket")
		}

		proc := env.processorFor(profile)

		g, gctx := errgroup.WithContext(ctx)
		limit := cfg.Ingest.MaxConcurrentFiles
		if limit <= 0 {
			limit = 1
		}
		g.SetLimit(limit)

		for _, object := range args {
			g.Go(func() error {
				if err := proc.Process(gctx, bucket, object); err != nil {
					return eris.Wrapf(err, "process %s", object)
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("processing complete", zap.Int("objects", len(args)))
		return nil
	},
}

func init() {
	processCmd.Flags().StringVar(&processBucket, "bucket", "", "bucket to fetch objects from (default from config/profile)")
	processCmd.Flags().StringVar(&processProfile, "profile", "", "named ingest profile from the profiles file")
	rootCmd.AddCommand(processCmd)
}
