// Package batch applies a power action to groups of VMs, retrying a whole group
// when any of its VMs fails.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/cloud"
	"github.com/google/uuid"
)

// Orchestrator runs batches sequentially. Within a batch every VM is invoked one
// after another; a pass with any failure is repeated after Policy.Delay until
// Policy.MaxAttempts passes have been made.
type Orchestrator struct {
	Auth     Authenticator
	Invoker  Invoker
	Policy   cloud.BatchRetryPolicy
	Logger   *slog.Logger
	Notifier Notifier
	// Sleep defaults to a context-aware timer. Tests replace it.
	Sleep SleepFunc
	// Now defaults to time.Now.
	Now func() time.Time
}

// Run authenticates once and then processes batches in order.
//
// A failed authentication marks every batch skipped without invoking anything.
// An exhausted batch never stops the run. The only error returned is the context's,
// when the run is cancelled; the partial report is returned alongside it.
func (o *Orchestrator) Run(ctx context.Context, batches []Batch, action cloud.Action) (Report, error) {
	if o.Policy.MaxAttempts < 1 {
		return Report{}, fmt.Errorf("max attempts must be at least 1, got %d", o.Policy.MaxAttempts)
	}

	report := Report{
		RunID:     fmt.Sprintf("req-%s", uuid.New().String()),
		Action:    action.Name,
		StartedAt: o.now(),
		Results:   make([]Result, 0, len(batches)),
	}
	log := o.logger().With("run_id", report.RunID, "action", action.Name)

	token, err := o.Auth.Authenticate(ctx)
	if err != nil {
		log.Error("Authentication failed. Skipping batch processing", "error", err)
		report.AuthError = err.Error()
		for i, b := range batches {
			report.Results = append(report.Results, Result{Index: i + 1, VMs: b, Outcome: OutcomeSkipped})
		}
		report.FinishedAt = o.now()
		o.notify(ctx, log, report, Result{Outcome: OutcomeSkipped})
		return report, nil
	}

	for i, b := range batches {
		batchLog := log.With("batch", i+1, "progress", fmt.Sprintf("%d/%d", i+1, len(batches)))

		result, err := o.runBatch(ctx, token, i+1, b, action, batchLog)
		report.Results = append(report.Results, result)
		if err != nil {
			batchLog.Warn("Run cancelled", "error", err)
			for j := i + 1; j < len(batches); j++ {
				report.Results = append(report.Results, Result{Index: j + 1, VMs: batches[j], Outcome: OutcomeCancelled})
			}
			report.FinishedAt = o.now()
			return report, err
		}

		if result.Outcome == OutcomeExhausted {
			o.notify(ctx, batchLog, report, result)
		}
	}

	report.FinishedAt = o.now()
	log.Info("Batch run summary",
		"batches", len(batches),
		"succeeded", report.Count(OutcomeSucceeded),
		"exhausted", report.Count(OutcomeExhausted))

	return report, nil
}

// runBatch drives one batch through Attempting until it succeeds or runs out of attempts.
func (o *Orchestrator) runBatch(ctx context.Context, token string, index int, b Batch, action cloud.Action, log *slog.Logger) (Result, error) {
	result := Result{Index: index, VMs: b}
	log.Info("Starting batch", "vms", []string(b))

	pending := []string(b)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Outcome = OutcomeCancelled
			return result, err
		}

		result.Attempts = attempt
		failed := o.attempt(ctx, token, pending, action, log.With("attempt", attempt))

		if len(failed) == 0 {
			result.Outcome = OutcomeSucceeded
			result.Failed = nil
			log.Info("Batch completed successfully", "attempts", attempt)
			return result, nil
		}
		result.Failed = failed

		if attempt >= o.Policy.MaxAttempts {
			result.Outcome = OutcomeExhausted
			log.Error("Batch failed after exhausting retries",
				"attempts", attempt,
				"failed_vms", failed)
			return result, nil
		}

		log.Warn("Retrying batch",
			"attempt", attempt,
			"max_attempts", o.Policy.MaxAttempts,
			"delay", o.Policy.Delay,
			"failed_vms", failed)

		if err := o.sleep(ctx, o.Policy.Delay); err != nil {
			result.Outcome = OutcomeCancelled
			return result, err
		}

		if o.Policy.RetryFailedOnly {
			pending = failed
		}
	}
}

// attempt invokes the action for every VM in order and returns the IDs that failed.
func (o *Orchestrator) attempt(ctx context.Context, token string, vms []string, action cloud.Action, log *slog.Logger) []string {
	var failed []string
	for _, vmID := range vms {
		vmLog := log.With("vm_id", vmID)
		if err := o.Invoker.PerformVMAction(ctx, token, vmID, action); err != nil {
			vmLog.Error("VM action failed", "error", err)
			failed = append(failed, vmID)
			continue
		}
		vmLog.Info("VM action successful")
	}
	return failed
}

func (o *Orchestrator) notify(ctx context.Context, log *slog.Logger, report Report, result Result) {
	if o.Notifier == nil {
		return
	}
	if err := o.Notifier.NotifyBatchFailure(ctx, report, result); err != nil {
		log.Warn("Failed to send failure notification", "error", err)
	}
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if o.Sleep != nil {
		return o.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// SleepContext waits for d, returning early with ctx.Err() if ctx is done first.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
