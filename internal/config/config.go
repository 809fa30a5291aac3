// Package config resolves the run configuration from flags, environment variables,
// an optional YAML file and a .env file.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/batch"
	"github.com/aravindh-murugesan/vmpower-go/internal/cloud"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

var (
	ErrMissingEndpoint    = errors.New("endpoint is required (flag --endpoint or AUTH_ENDPOINT)")
	ErrMissingCredentials = errors.New("username, password and account name are required")
	ErrNoBatches          = errors.New("no vm batches configured")
	ErrEmptyBatch         = errors.New("vm batch is empty")
	ErrInvalidRetry       = errors.New("invalid retry policy")
	ErrInvalidSchedule    = errors.New("invalid schedule")
	ErrUnknownAction      = cloud.ErrUnknownAction
)

// Schedule is a cron-triggered power run used by the daemon.
type Schedule struct {
	Name   string `mapstructure:"name"`
	Cron   string `mapstructure:"cron"`
	Action string `mapstructure:"action"`
	Force  bool   `mapstructure:"force"`
	// Batches overrides the top-level batches for this schedule.
	Batches [][]string `mapstructure:"batches"`
}

// Config is the fully resolved configuration of a run.
type Config struct {
	Endpoint    string `mapstructure:"endpoint"`
	AuthURL     string `mapstructure:"auth-url"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	AccountName string `mapstructure:"account-name"`
	ProjectName string `mapstructure:"project-name"`
	Cloud       string `mapstructure:"cloud"`
	Insecure    bool   `mapstructure:"insecure"`

	LogLevel string `mapstructure:"log-level"`
	// Timeout is the global run timeout in seconds (0 = run indefinitely).
	Timeout int `mapstructure:"timeout"`

	Store        string `mapstructure:"store"`
	TokenFile    string `mapstructure:"token-file"`
	ResponseFile string `mapstructure:"response-file"`

	WebhookURL      string `mapstructure:"webhook-url"`
	WebhookUsername string `mapstructure:"webhook-username"`
	WebhookPassword string `mapstructure:"webhook-password"`

	Batches [][]string `mapstructure:"batches"`
	// BatchFlags holds --batch values ("vm-a,vm-b"); when set they replace Batches.
	BatchFlags []string `mapstructure:"batch"`

	Retry cloud.BatchRetryPolicy `mapstructure:"retry"`

	Schedules   []Schedule `mapstructure:"schedules"`
	Timezone    string     `mapstructure:"timezone"`
	BindAddress string     `mapstructure:"bind-address"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ProjectName: "default",
		Insecure:    true,
		LogLevel:    "info",
		Store:       "file",
		Retry:       cloud.DefaultBatchRetryPolicy(),
		Timezone:    "UTC",
		BindAddress: "0.0.0.0:8080",
	}
}

// Load decodes every setting known to v on top of Default.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := decode(v.AllSettings(), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if len(cfg.BatchFlags) > 0 {
		cfg.Batches = ParseBatchFlags(cfg.BatchFlags)
	}
	return &cfg, nil
}

// decode is a generic helper to unmarshal loosely typed settings into a struct.
// It uses weak typing so env values ("3", "true") land in typed fields.
func decode(input map[string]any, result any) error {
	config := &mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// secondsToDurationHook reads bare numbers as seconds ("delay: 5").
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		case string:
			var n int
			if _, err := fmt.Sscanf(v, "%d", &n); err == nil && fmt.Sprint(n) == strings.TrimSpace(v) {
				return time.Duration(n) * time.Second, nil
			}
		}
		return data, nil
	}
}

// ParseBatchFlags turns "vm-a,vm-b" entries into batches, dropping blank IDs.
func ParseBatchFlags(values []string) [][]string {
	batches := make([][]string, 0, len(values))
	for _, value := range values {
		var ids []string
		for _, id := range strings.Split(value, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		batches = append(batches, ids)
	}
	return batches
}

// VMBatches converts the configured batches into orchestrator batches.
func VMBatches(batches [][]string) []batch.Batch {
	out := make([]batch.Batch, 0, len(batches))
	for _, b := range batches {
		out = append(out, batch.Batch(b))
	}
	return out
}

// ValidateConnection checks the settings needed to talk to the API.
// Credentials may come from a clouds.yaml profile, in which case they are checked later.
func (c *Config) ValidateConnection() error {
	if c.Cloud != "" {
		return nil
	}
	if c.Endpoint == "" {
		return ErrMissingEndpoint
	}
	if c.Username == "" || c.Password == "" || c.AccountName == "" {
		return ErrMissingCredentials
	}
	return nil
}

// ValidateRun checks the settings needed for a power run.
func (c *Config) ValidateRun() error {
	if err := c.ValidateConnection(); err != nil {
		return err
	}
	if err := ValidateBatches(c.Batches); err != nil {
		return err
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidRetry, c.Retry.MaxAttempts)
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("%w: delay must not be negative, got %s", ErrInvalidRetry, c.Retry.Delay)
	}
	return nil
}

// ValidateBatches rejects an empty batch list and empty batches.
func ValidateBatches(batches [][]string) error {
	if len(batches) == 0 {
		return ErrNoBatches
	}
	for i, b := range batches {
		if len(b) == 0 {
			return fmt.Errorf("%w: batch %d", ErrEmptyBatch, i+1)
		}
	}
	return nil
}

// ValidateSchedules checks the daemon schedules.
func (c *Config) ValidateSchedules() error {
	if len(c.Schedules) == 0 {
		return fmt.Errorf("%w: no schedules configured", ErrInvalidSchedule)
	}
	for i, s := range c.Schedules {
		if s.Cron == "" {
			return fmt.Errorf("%w: schedule %d has no cron expression", ErrInvalidSchedule, i+1)
		}
		if _, err := ActionFor(s.Action, s.Force); err != nil {
			return fmt.Errorf("%w: schedule %d: %v", ErrInvalidSchedule, i+1, err)
		}
		batches := s.Batches
		if len(batches) == 0 {
			batches = c.Batches
		}
		if err := ValidateBatches(batches); err != nil {
			return fmt.Errorf("%w: schedule %d: %v", ErrInvalidSchedule, i+1, err)
		}
	}
	return nil
}

// ActionFor builds a validated action from its name.
func ActionFor(name string, force bool) (cloud.Action, error) {
	var action cloud.Action
	switch name {
	case cloud.ActionPowerUp:
		action = cloud.PowerUp()
	case cloud.ActionShutdown:
		action = cloud.Shutdown(force)
	default:
		action = cloud.Action{Name: name}
	}
	return action, action.Validate()
}

// Location loads the configured timezone. It defaults to UTC if empty.
func (c *Config) Location() (*time.Location, error) {
	timezone := c.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", timezone, err)
	}
	return loc, nil
}
