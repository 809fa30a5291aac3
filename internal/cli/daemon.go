package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/batch"
	"github.com/aravindh-murugesan/vmpower-go/internal/config"
	"github.com/aravindh-murugesan/vmpower-go/internal/workflow"
	"github.com/go-co-op/gocron-ui/server"
	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
)

var daemonCommand = &cobra.Command{
	Use:     "daemon",
	Short:   "Run VMPower in daemon mode",
	GroupID: "vmpower",
	Long:    `Starts VMPower as a background service that runs the power schedules from the config file (for example: power up at 08:00, shut down at 20:00) and serves the scheduler dashboard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		banner := fmt.Sprintf("VMPower - Daemon Mode \n\nVersion: %s\nBuild Date: %s", VMPowerVersion, VMPowerDate)
		printBanner(cmd, banner)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateConnection(); err != nil {
			return err
		}
		if err := cfg.ValidateSchedules(); err != nil {
			return err
		}

		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		dlog := workflow.SetupLogger(cfg.LogLevel, cfg.Endpoint).With("component", "daemon")

		s, err := gocron.NewScheduler(gocron.WithLocation(loc))
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}

		ctx := cmd.Context()
		for _, sched := range cfg.Schedules {
			job, err := scheduleJob(ctx, s, cfg, sched, dlog)
			if err != nil {
				_ = s.Shutdown()
				return err
			}

			if nextRun, err := job.NextRun(); err == nil {
				dlog.Info("Job Scheduled",
					"job_name", job.Name(),
					"job_id", job.ID(),
					"schedule", sched.Cron,
					"next_run", nextRun.Format(time.RFC3339))
			}
		}

		s.Start()
		dlog.Info("Scheduler started", "jobs", len(cfg.Schedules), "timezone", loc.String())

		port, err := portFromAddress(cfg.BindAddress)
		if err != nil {
			_ = s.Shutdown()
			return err
		}

		srv := server.NewServer(s, port, server.WithTitle("VMPower - Dashboard"))
		httpServer := &http.Server{
			Addr:              cfg.BindAddress,
			Handler:           srv.Router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			dlog.Info("VMPower Scheduler UI started", "address", cfg.BindAddress)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		// Block until a signal cancels the command context or the UI server dies
		select {
		case <-ctx.Done():
			dlog.Warn("Shutting down scheduler due to system signal...")
		case err := <-serveErr:
			if err != nil {
				dlog.Error("Failed to start UI server", "error", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			dlog.Warn("UI server did not shut down cleanly", "error", err)
		}
		return s.Shutdown()
	},
}

// scheduleJob registers one power schedule. Runs never overlap: a tick that fires
// while the previous run is still going is rescheduled.
func scheduleJob(ctx context.Context, s gocron.Scheduler, cfg *config.Config, sched config.Schedule, dlog *slog.Logger) (gocron.Job, error) {
	action, err := config.ActionFor(sched.Action, sched.Force)
	if err != nil {
		return nil, err
	}

	batches := sched.Batches
	if len(batches) == 0 {
		batches = cfg.Batches
	}

	name := sched.Name
	if name == "" {
		name = fmt.Sprintf("%s (%s)", action.Name, sched.Cron)
	}

	var job gocron.Job
	job, err = s.NewJob(
		gocron.CronJob(sched.Cron, false),
		gocron.NewTask(func() {
			report, err := workflow.RunPowerWorkflow(ctx, cfg, action, batches)
			if err != nil {
				dlog.Error("Power workflow failed", "job_name", name, "error", err)
			}

			args := []any{
				"job_name", name,
				"run_id", report.RunID,
				"succeeded", report.Count(batch.OutcomeSucceeded),
				"exhausted", report.Count(batch.OutcomeExhausted),
			}
			if job != nil {
				if nextRun, err := job.NextRun(); err == nil {
					args = append(args, "next_run", nextRun.Format(time.RFC3339))
				}
			}
			dlog.Info("Power workflow completed", args...)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule %q: %w", name, err)
	}
	return job, nil
}

// portFromAddress extracts the numeric port of a host:port bind address.
func portFromAddress(address string) (int, error) {
	_, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return 0, fmt.Errorf("invalid bind address '%s': %w", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port in bind address '%s': %w", address, err)
	}
	return port, nil
}

func init() {
	rootCommand.AddCommand(daemonCommand)
	daemonCommand.Flags().String("bind-address", config.Default().BindAddress, "Address to bind the UI server")
	daemonCommand.Flags().String("timezone", config.Default().Timezone, "Timezone the cron schedules are evaluated in")
}
