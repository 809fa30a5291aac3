package cli

import (
	"fmt"

	"github.com/aravindh-murugesan/vmpower-go/internal/batch"
	"github.com/aravindh-murugesan/vmpower-go/internal/cloud"
	"github.com/aravindh-murugesan/vmpower-go/internal/config"
	"github.com/aravindh-murugesan/vmpower-go/internal/output"
	"github.com/aravindh-murugesan/vmpower-go/internal/workflow"
	"github.com/spf13/cobra"
)

// Flags for power sub-commands
var (
	outputFormat string
	failOnError  bool
	forceOff     bool // shutdown only
)

var powerUpCommand = &cobra.Command{
	Use:     "powerup",
	Aliases: []string{"start"},
	GroupID: "vmpower",
	Short:   "Power up every configured VM batch",
	Long:    `Authenticates, then sends the "powerup" action to each VM batch in order. A batch with any failed VM is retried as a whole, up to --max-attempts passes separated by --retry-delay.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printBanner(cmd, "VMPower - Power Up")
		return runPower(cmd, cloud.ActionPowerUp)
	},
}

var shutdownCommand = &cobra.Command{
	Use:     "shutdown",
	Aliases: []string{"stop"},
	GroupID: "vmpower",
	Short:   "Shut down every configured VM batch",
	Long:    `Authenticates, then sends the "shutdown" action to each VM batch in order. Use --force for a hard power-off. Failed batches are retried as a whole like powerup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printBanner(cmd, "VMPower - Shutdown")
		return runPower(cmd, cloud.ActionShutdown)
	},
}

func runPower(cmd *cobra.Command, actionName string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateRun(); err != nil {
		return err
	}

	action, err := config.ActionFor(actionName, forceOff)
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(output.Format(outputFormat))
	if err != nil {
		return err
	}

	report, runErr := workflow.RunPowerWorkflow(cmd.Context(), cfg, action, cfg.Batches)
	if len(report.Results) > 0 {
		rendered, err := formatter.FormatReport(report)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
	}
	if runErr != nil {
		return runErr
	}

	if failOnError && !report.Succeeded() {
		return fmt.Errorf("%d of %d batches did not succeed",
			len(report.Results)-report.Count(batch.OutcomeSucceeded), len(report.Results))
	}
	return nil
}

func addPowerFlags(cmd *cobra.Command) {
	defaults := cloud.DefaultBatchRetryPolicy()

	cmd.Flags().StringArray("batch", nil, "Comma-separated VM IDs forming one batch; repeat for more batches (overrides the config file)")
	cmd.Flags().Int("max-attempts", defaults.MaxAttempts, "Maximum passes over a failing batch")
	cmd.Flags().Duration("retry-delay", defaults.Delay, "Pause between two passes over a failing batch")
	cmd.Flags().Bool("retry-failed-only", false, "Only re-invoke the VMs that failed on the previous pass")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", string(output.FormatTable), "Report format (table, json, yaml)")
	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "Exit non-zero unless every batch succeeded")
}

func init() {
	addPowerFlags(powerUpCommand)
	addPowerFlags(shutdownCommand)
	shutdownCommand.Flags().BoolVar(&forceOff, "force", false, "Force power-off instead of a graceful shutdown")

	rootCommand.AddCommand(powerUpCommand)
	rootCommand.AddCommand(shutdownCommand)
}
