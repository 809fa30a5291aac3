package cli

import (
	"fmt"

	"github.com/aravindh-murugesan/vmpower-go/internal/output"
	"github.com/aravindh-murugesan/vmpower-go/internal/workflow"
	"github.com/spf13/cobra"
)

var listFormat string

var listVMsCommand = &cobra.Command{
	Use:     "list-vms",
	GroupID: "vmpower",
	Short:   "List the VMs visible to the account",
	Long:    `Authenticates and fetches the VM collection from the compute API. The raw response is saved to the response store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printBanner(cmd, "VMPower - VM Inventory")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateConnection(); err != nil {
			return err
		}

		formatter, err := output.NewFormatter(output.Format(listFormat))
		if err != nil {
			return err
		}

		vms, err := workflow.ListVMs(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		rendered, err := formatter.FormatVMList(vms)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	listVMsCommand.Flags().StringVarP(&listFormat, "output", "o", string(output.FormatTable), "Output format (table, json, yaml)")
	rootCommand.AddCommand(listVMsCommand)
}
