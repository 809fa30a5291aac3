package workflow

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/batch"
	"github.com/aravindh-murugesan/vmpower-go/internal/cloud"
	"github.com/aravindh-murugesan/vmpower-go/internal/config"
	"github.com/aravindh-murugesan/vmpower-go/internal/notifications"
)

// RunPowerWorkflow applies an action to every configured batch of VMs.
//
// Responsibilities:
//  1. Connection: builds the store and the API client from the configuration.
//  2. Authentication: obtains one bearer token for the whole run.
//  3. Iteration: hands the batches to the orchestrator, which retries each batch as a unit.
//  4. Safety: respects a global timeout context when one is configured.
//
// Exhausted batches and a failed authentication are reported in the returned
// Report, not as an error.
func RunPowerWorkflow(ctx context.Context, cfg *config.Config, action cloud.Action, batches [][]string) (batch.Report, error) {
	logger := SetupLogger(cfg.LogLevel, cfg.Endpoint).With("workflow", "power")
	logger.Info("Initializing power workflow", "action", action.Name, "batches", len(batches))

	if err := action.Validate(); err != nil {
		return batch.Report{}, err
	}
	if err := config.ValidateBatches(batches); err != nil {
		return batch.Report{}, err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Timeout)*time.Second)
		defer cancel()
		logger.Debug("Global workflow timeout configured", "timeout_seconds", cfg.Timeout)
	}

	st, err := openStore(cfg)
	if err != nil {
		return batch.Report{}, err
	}
	if closer, ok := st.(io.Closer); ok {
		defer closer.Close()
	}

	client, err := initClient(cfg, st, logger)
	if err != nil {
		logger.Error("Client initialization failed", "error", err)
		return batch.Report{}, err
	}

	orchestrator := &batch.Orchestrator{
		Auth:    client,
		Invoker: client,
		Policy:  cfg.Retry,
		Logger:  logger,
		Notifier: &notifications.BatchNotifier{
			Webhook: notifications.Webhook{
				URL:      cfg.WebhookURL,
				Username: cfg.WebhookUsername,
				Password: cfg.WebhookPassword,
			},
			Endpoint: client.Endpoint,
		},
	}

	report, err := orchestrator.Run(ctx, config.VMBatches(batches), action)
	if err != nil {
		logger.Warn("Workflow execution halted due to timeout or cancellation", "error", err)
		return report, fmt.Errorf("power workflow interrupted: %w", err)
	}

	return report, nil
}
