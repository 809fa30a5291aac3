package workflow

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/cloud/openstack"
	"github.com/aravindh-murugesan/vmpower-go/internal/config"
	"github.com/aravindh-murugesan/vmpower-go/internal/store"
)

// ListVMs authenticates and fetches the VM collection. The raw response is kept in the store.
func ListVMs(ctx context.Context, cfg *config.Config) ([]openstack.VM, error) {
	logger := SetupLogger(cfg.LogLevel, cfg.Endpoint).With("workflow", "list-vms")

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Timeout)*time.Second)
		defer cancel()
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if closer, ok := st.(io.Closer); ok {
		defer closer.Close()
	}

	client, err := initClient(cfg, st, logger)
	if err != nil {
		logger.Error("Client initialization failed", "error", err)
		return nil, err
	}

	token, err := client.Authenticate(ctx)
	if err != nil {
		logger.Error("Authentication failed", "error", err)
		return nil, err
	}

	vms, err := client.ListVMs(ctx, token)
	if err != nil {
		logger.Error("Failed to retrieve VMs", "error", err)
		return nil, fmt.Errorf("listing vms failed: %w", err)
	}

	logger.Info("VMs fetched successfully", "count", len(vms))
	return vms, nil
}

// CachedToken returns the token persisted by the last successful authentication.
func CachedToken(ctx context.Context, cfg *config.Config) (store.Token, error) {
	st, err := openStore(cfg)
	if err != nil {
		return store.Token{}, err
	}
	if closer, ok := st.(io.Closer); ok {
		defer closer.Close()
	}
	return st.GetToken(ctx)
}
