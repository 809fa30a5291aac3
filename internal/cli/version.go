package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	VMPowerVersion, VMPowerCommit, VMPowerDate string
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Display version, commit hash, build date, and other build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("VMPower version: %s\n", VMPowerVersion)
		fmt.Printf("Commit: %s\n", VMPowerCommit)
		fmt.Printf("Built: %s\n", VMPowerDate)
	},
}

func init() {
	rootCommand.AddCommand(versionCommand)
}
