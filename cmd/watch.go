package main

import (
	"context"
	"io/fs"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ftplog-ingest/internal/ingest"
)

var (
	watchBucket   string
	watchProfile  string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll a local bucket directory and ingest new arrivals",
	Long:  "Scans an fs-driver bucket directory on an interval and processes every matching object. The ledger makes re-scans harmless: already-processed files are skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.ObjectStore.Driver != "" && cfg.ObjectStore.Driver != "fs" {
			return eris.Errorf("watch requires the fs object store driver, got %q", cfg.ObjectStore.Driver)
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		profile, err := resolveProfile(watchProfile)
		if err != nil {
			return err
		}
		bucket := watchBucket
		if bucket == "" {
			bucket = profile.Bucket
		}
		if bucket == "" {
			return eris.New("no bucket: set --bucket or ingest.bucket")
		}

		proc := env.processorFor(profile)
		dir := filepath.Join(cfg.ObjectStore.Root, bucket)
		log := zap.L().With(zap.String("component", "watch"), zap.String("dir", dir))
		log.Info("watching for new objects", zap.Duration("interval", watchInterval))

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		for {
			if err := scanOnce(ctx, proc, dir, bucket); err != nil {
				log.Error("scan failed", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				log.Info("watch stopped")
				return nil
			case <-ticker.C:
			}
		}
	},
}

// scanOnce walks the bucket directory and processes every regular file.
// The processor's own filter and idempotency gate decide what to ingest.
func scanOnce(ctx context.Context, proc *ingest.Processor, dir, bucket string) error {
	var objects []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		objects = append(objects, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return eris.Wrapf(err, "walk %s", dir)
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := cfg.Ingest.MaxConcurrentFiles
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, object := range objects {
		g.Go(func() error {
			return proc.Process(gctx, bucket, object)
		})
	}
	return g.Wait()
}

func init() {
	watchCmd.Flags().StringVar(&watchBucket, "bucket", "", "bucket directory to watch (default from config/profile)")
	watchCmd.Flags().StringVar(&watchProfile, "profile", "", "named ingest profile from the profiles file")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "poll interval")
	rootCmd.AddCommand(watchCmd)
}
