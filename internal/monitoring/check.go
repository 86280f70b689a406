// Package monitoring implements the pipeline health check: a snapshot
// read of the pipeline_monitoring table, threshold evaluation of recent
// ledger outcomes, and webhook alert delivery.
package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/ftplog-ingest/internal/store"
)

// CheckStatus is the outcome of one snapshot check.
type CheckStatus string

const (
	CheckAlert  CheckStatus = "ALERT"
	CheckOK     CheckStatus = "OK"
	CheckNoRows CheckStatus = "NO_ROWS"
	CheckFailed CheckStatus = "FAILED"
)

// CheckResult reports one snapshot check.
type CheckResult struct {
	Status    CheckStatus `json:"status"`
	Details   string      `json:"details,omitempty"`
	CheckTime *time.Time  `json:"check_time,omitempty"`
}

// Monitor reads monitoring snapshots and raises alerts.
type Monitor struct {
	store   store.Store
	alerter *Alerter
}

// NewMonitor creates a Monitor. The alerter may be nil when alert
// delivery is not configured; ALERT snapshots are then only reported.
func NewMonitor(st store.Store, alerter *Alerter) *Monitor {
	return &Monitor{store: st, alerter: alerter}
}

// Check reads the newest pipeline_monitoring row and maps it to a
// status. An ALERT snapshot additionally triggers webhook delivery. A
// store failure yields a FAILED result plus the underlying error.
func (m *Monitor) Check(ctx context.Context) (*CheckResult, error) {
	log := zap.L().With(zap.String("component", "monitoring.monitor"))

	row, err := m.store.LatestMonitoring(ctx)
	if err != nil {
		log.Error("monitoring check failed", zap.Error(err))
		return &CheckResult{Status: CheckFailed, Details: err.Error()}, err
	}
	if row == nil {
		log.Info("monitoring check: no snapshot rows")
		return &CheckResult{Status: CheckNoRows}, nil
	}

	result := &CheckResult{
		Details:   row.Details,
		CheckTime: &row.CheckTime,
	}
	if row.Status == string(CheckAlert) {
		result.Status = CheckAlert
		log.Warn("monitoring check: alert snapshot",
			zap.Time("check_time", row.CheckTime),
			zap.String("details", row.Details),
		)
		if m.alerter != nil {
			m.alerter.SendAlerts(ctx, []Alert{{
				Type:      AlertPipelineSnapshot,
				Severity:  "high",
				Message:   "pipeline monitoring snapshot is in ALERT state",
				Details:   map[string]any{"check_time": row.CheckTime, "details": row.Details},
				Timestamp: time.Now().UTC(),
			}})
		}
		return result, nil
	}

	result.Status = CheckOK
	log.Debug("monitoring check ok", zap.Time("check_time", row.CheckTime))
	return result, nil
}
