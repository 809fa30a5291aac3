package workflow

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/cloud"
	"github.com/aravindh-murugesan/vmpower-go/internal/cloud/openstack"
	"github.com/aravindh-murugesan/vmpower-go/internal/config"
	"github.com/aravindh-murugesan/vmpower-go/internal/store"
	"github.com/lmittmann/tint"
)

// logOutput is where SetupLogger writes. Tests silence it.
var logOutput io.Writer = os.Stderr

// SetupLogger configures the application-wide logger.
// It uses "tint" for colorized, structured logging that is easy to read in terminals.
func SetupLogger(level string, endpoint string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := tint.NewHandler(logOutput, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.RFC3339,
	})

	return slog.New(handler).With("endpoint", endpoint)
}

// openStore opens the configured store. Tests replace it to observe Close.
var openStore = newStore

// newStore builds the token/response store selected in the configuration.
func newStore(cfg *config.Config) (store.Store, error) {
	return store.New(store.Options{
		Backend:      cfg.Store,
		TokenFile:    cfg.TokenFile,
		ResponseFile: cfg.ResponseFile,
	})
}

// initClient is a helper to spin up the API client for a run.
// Credentials from a clouds.yaml profile only fill fields left empty by flags and env.
func initClient(cfg *config.Config, st store.Store, logger *slog.Logger) (*openstack.Client, error) {
	client := &openstack.Client{
		Endpoint:           cfg.Endpoint,
		AuthURL:            cfg.AuthURL,
		Username:           cfg.Username,
		Password:           cfg.Password,
		AccountName:        cfg.AccountName,
		ProjectName:        cfg.ProjectName,
		InsecureSkipVerify: cfg.Insecure,
		RetryConfig: cloud.RetryConfig{
			MaxRetries:       3,
			BaseDelay:        2 * time.Second,
			MaxDelay:         10 * time.Second,
			OperationTimeout: 30 * time.Second,
		},
		Store:  st,
		Logger: logger,
	}

	if cfg.Cloud != "" {
		logger.Debug("Loading credentials from cloud profile", "profile", cfg.Cloud)
		if err := client.ApplyCloudProfile(cfg.Cloud); err != nil {
			return nil, err
		}
	}

	if client.Endpoint == "" {
		return nil, config.ErrMissingEndpoint
	}
	if client.Username == "" || client.Password == "" || client.AccountName == "" {
		return nil, config.ErrMissingCredentials
	}

	if err := client.NewClient(); err != nil {
		return nil, fmt.Errorf("client initialization failed: %w", err)
	}
	return client, nil
}
