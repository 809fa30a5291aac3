package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/store"
	"github.com/aravindh-murugesan/vmpower-go/internal/workflow"
	"github.com/spf13/cobra"
)

var revealToken bool

var tokenCommand = &cobra.Command{
	Use:     "token",
	GroupID: "vmpower",
	Short:   "Inspect the cached bearer token",
}

var tokenShowCommand = &cobra.Command{
	Use:   "show",
	Short: "Print the cached token and its age",
	Long:  `Reads the token saved by the last successful authentication from the configured store. The token is masked unless --reveal is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		token, err := workflow.CachedToken(cmd.Context(), cfg)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no cached token; run powerup, shutdown or list-vms first")
		}
		if err != nil {
			return err
		}

		value := token.Value
		if !revealToken {
			value = maskToken(value)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Token:     %s\n", value)
		fmt.Fprintf(out, "Issued at: %s\n", token.IssuedAt().UTC().Format(time.RFC3339))
		fmt.Fprintf(out, "Age:       %s\n", time.Since(token.IssuedAt()).Round(time.Second))
		return nil
	},
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	tokenShowCommand.Flags().BoolVar(&revealToken, "reveal", false, "Print the full token")
	tokenCommand.AddCommand(tokenShowCommand)
	rootCommand.AddCommand(tokenCommand)
}
