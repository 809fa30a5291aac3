package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/batch"
)

// Enabled reports whether a webhook URL is configured.
func (w *Webhook) Enabled() bool {
	return w != nil && w.URL != ""
}

func (w *Webhook) Notify(ctx context.Context, notification BatchFailure) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := http.Client{
		Timeout: timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if w.Username != "" || w.Password != "" {
		req.SetBasicAuth(w.Username, w.Password)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification via webhook: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to send notification via webhook: %d", resp.StatusCode)
	}

	return nil
}

// BatchNotifier adapts a Webhook to the orchestrator's failure hook.
type BatchNotifier struct {
	Webhook  Webhook
	Endpoint string
}

func (n *BatchNotifier) NotifyBatchFailure(ctx context.Context, report batch.Report, result batch.Result) error {
	if !n.Webhook.Enabled() {
		return nil
	}

	notification := BatchFailure{
		Service:    "vmpower",
		RunID:      report.RunID,
		Action:     report.Action,
		Endpoint:   n.Endpoint,
		BatchIndex: result.Index,
		VMs:        result.VMs,
		FailedVMs:  result.Failed,
		Attempts:   result.Attempts,
		Outcome:    result.Outcome,
	}

	if result.Outcome == batch.OutcomeSkipped {
		notification.Message = fmt.Sprintf("Authentication failed; %d batches skipped: %s", len(report.Results), report.AuthError)
	} else {
		notification.Message = fmt.Sprintf("Batch %d failed after %d attempts", result.Index, result.Attempts)
	}

	return n.Webhook.Notify(ctx, notification)
}
