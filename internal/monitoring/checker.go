package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/ftplog-ingest/internal/config"
	"github.com/sells-group/ftplog-ingest/internal/store"
)

// Checker runs periodic health checks in the background while serve is
// running.
type Checker struct {
	store   store.Store
	monitor *Monitor
	alerter *Alerter
	cfg     config.MonitoringConfig
}

// NewChecker creates a background health checker.
func NewChecker(st store.Store, monitor *Monitor, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		store:   st,
		monitor: monitor,
		alerter: alerter,
		cfg:     cfg,
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting health checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("health checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	// Snapshot check first; it sends its own alert on an ALERT row.
	if _, err := c.monitor.Check(ctx); err != nil {
		log.Error("monitoring: snapshot check failed", zap.Error(err))
	}

	lookback := time.Duration(c.cfg.LookbackHours) * time.Hour
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	stats, err := c.store.CollectLedgerStats(ctx, time.Now().UTC().Add(-lookback))
	if err != nil {
		log.Error("monitoring: failed to collect ledger stats", zap.Error(err))
		return
	}

	alerts := c.alerter.Evaluate(stats)
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered")
		return
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
}
