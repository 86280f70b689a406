package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ftplog-ingest/internal/config"
	"github.com/sells-group/ftplog-ingest/internal/store"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertPipelineSnapshot AlertType = "pipeline_snapshot"
	AlertIngestFailures   AlertType = "ingest_failures"
	AlertPartialLoads     AlertType = "partial_loads"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates ledger statistics against thresholds and sends
// alerts via webhook when they are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks recent ledger outcomes and returns any alerts. Failed
// loads are high severity; partial loads are medium.
func (a *Alerter) Evaluate(stats *store.LedgerStats) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if stats.Failed > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertIngestFailures,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d of %d file load(s) failed in last %dh",
				stats.Failed, stats.Total, a.cfg.LookbackHours,
			),
			Details: map[string]any{
				"failed": stats.Failed,
				"total":  stats.Total,
			},
			Timestamp: now,
		})
	}

	if stats.Partial > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertPartialLoads,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d file load(s) completed partially in last %dh",
				stats.Partial, a.cfg.LookbackHours,
			),
			Details: map[string]any{
				"partial": stats.Partial,
				"total":   stats.Total,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
