package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aravindh-murugesan/vmpower-go/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configFile string
	envFile    string

	// settings merges flags, environment, .env and the config file.
	settings = viper.New()
)

// flagKeys maps flag names to their nested configuration keys.
var flagKeys = map[string]string{
	"max-attempts":      "retry.max-attempts",
	"retry-delay":       "retry.delay",
	"retry-failed-only": "retry.failed-only",
}

var rootCommand = &cobra.Command{
	Use:           "vmpower",
	Aliases:       []string{"vmpower-go"},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 'version' and 'help' run without any configuration
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		if err := config.LoadDotEnv(envFile); err != nil {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		if err := config.ReadConfigFile(settings, configFile); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}

		return bindCommandFlags(settings, cmd)
	},
	Short: "VMPower: batch power management for cloud virtual machines",
	Long: `VMPower starts and stops groups of virtual machines through the compute API.
It authenticates once per run, caches the bearer token, and processes the configured
VM batches in order, retrying a whole batch when any of its VMs fails.`,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCommand.ExecuteContext(ctx)
}

// bindCommandFlags binds the flags of the command being executed. Binding happens
// here rather than in init because several commands share flag names.
func bindCommandFlags(v *viper.Viper, cmd *cobra.Command) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := f.Name
		if nested, ok := flagKeys[f.Name]; ok {
			key = nested
		}
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	return bindErr
}

// loadConfig resolves the configuration for the running command.
func loadConfig() (*config.Config, error) {
	return config.Load(settings)
}

func init() {
	rootCommand.AddGroup(&cobra.Group{ID: "vmpower", Title: "VMPower"})

	defaults := config.Default()
	flags := rootCommand.PersistentFlags()

	flags.StringVar(&configFile, "config", "", "Path to a YAML config file (batches, schedules, retry policy)")
	flags.StringVar(&envFile, "env-file", ".env", "Path to a .env file loaded into the environment")

	// Connection
	flags.String("endpoint", "", "API host, e.g. 27.126.152.210 (env AUTH_ENDPOINT)")
	flags.String("auth-url", "", "Identity URL (default https://{endpoint}/api/v2/identity/auth)")
	flags.String("username", "", "Username (env AUTH_USERNAME)")
	flags.String("password", "", "Password (env AUTH_PASSWORD)")
	flags.String("account-name", "", "Account/domain name (env AUTH_ACCOUNT_NAME)")
	flags.String("project-name", defaults.ProjectName, "Project the token is scoped to")
	flags.String("cloud", "", "Read credentials from this clouds.yaml profile")
	flags.Bool("insecure", defaults.Insecure, "Skip TLS certificate verification")

	// Runtime
	flags.String("log-level", defaults.LogLevel, "Logging level (debug, info, warn, error)")
	flags.Int("timeout", 0, "Global execution timeout in seconds (0 = run indefinitely)")

	// Persistence
	flags.String("store", defaults.Store, "Token/response store: file or redis://host:port/db")
	flags.String("token-file", "", "Token cache file (default auth_token.json)")
	flags.String("response-file", "", "Last response file (default response_data.json)")

	// Alerting
	flags.String("webhook-url", "", "Webhook URL for alerting")
	flags.String("webhook-username", "", "Webhook username for alerting")
	flags.String("webhook-password", "", "Webhook password for alerting")

	if err := config.BindEnvironment(settings); err != nil {
		panic(err)
	}
}
