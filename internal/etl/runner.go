// Package etl runs the separately-maintained bulk SQL transform against
// the structured store. The script's contents are opaque to this program.
package etl

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ftplog-ingest/internal/store"
)

// Run outcome statuses, matching the vocabulary of the ledger.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Result reports one ETL run.
type Result struct {
	Status string `json:"status"`
	JobID  string `json:"job_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Runner executes the scheduled ETL script.
type Runner struct {
	store      store.Store
	scriptPath string
}

// NewRunner creates a Runner that reads its script from scriptPath on
// every run, so script edits take effect without a restart.
func NewRunner(st store.Store, scriptPath string) *Runner {
	return &Runner{store: st, scriptPath: scriptPath}
}

// Run reads the script and executes it in one shot. The returned Result
// always describes the outcome; the error carries the cause when the
// run failed.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	jobID := uuid.New().String()
	log := zap.L().With(
		zap.String("component", "etl.runner"),
		zap.String("job_id", jobID),
	)

	script, err := os.ReadFile(r.scriptPath)
	if err != nil {
		err = eris.Wrapf(err, "etl: read script %s", r.scriptPath)
		return &Result{Status: StatusFailed, JobID: jobID, Error: err.Error()}, err
	}

	log.Info("running etl script", zap.String("script", r.scriptPath))
	if err := r.store.ExecScript(ctx, string(script)); err != nil {
		err = eris.Wrap(err, "etl: execute script")
		log.Error("etl run failed", zap.Error(err))
		return &Result{Status: StatusFailed, JobID: jobID, Error: err.Error()}, err
	}

	log.Info("etl run complete")
	return &Result{Status: StatusSuccess, JobID: jobID}, nil
}
