package openstack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/cloud"
	"github.com/gophercloud/gophercloud/v2"
)

// isRetryable determines if an error is transient and warrants a retry.
// It specifically checks for standard HTTP 429/5xx codes from Gophercloud
// and assumes other unknown network errors are also retryable.
func isRetryable(err error) bool {
	var gopherErrors gophercloud.ErrUnexpectedResponseCode

	if errors.As(err, &gopherErrors) {
		switch gopherErrors.Actual {
		case http.StatusTooManyRequests, // 429 - Rate Limiting
			http.StatusRequestTimeout,      // 408 - Client Timeout
			http.StatusInternalServerError, // 500 - Server Error
			http.StatusServiceUnavailable,  // 503 - Maintenance/Overload
			http.StatusGatewayTimeout:      // 504 - Upstream Timeout
			return true
		default:
			return false
		}
	}
	// DNS failures, connection resets and similar are treated as transient.
	return true
}

// StatusCode extracts the HTTP status from an API error, or 0 for transport errors.
func StatusCode(err error) int {
	var gopherErrors gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &gopherErrors) {
		return gopherErrors.Actual
	}
	return 0
}

// ExecuteAction wraps a function with retry logic, including exponential backoff,
// jitter, and context timeouts.
//
// opName is used for logging and debugging purposes.
// operation is the function to execute; it must accept a context to support cancellation.
func ExecuteAction(ctx context.Context, cfg cloud.RetryConfig, opName string, operation func(ctx context.Context) error) error {
	if cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.OperationTimeout)
		defer cancel()
	}

	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%s timed out before attempt %d: %w", opName, attempt+1, ctx.Err())
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt == cfg.MaxRetries {
			break
		}

		slog.Warn("Transient error detected, scheduling retry",
			"operation", opName,
			"attempt", attempt+1,
			"max_retries", cfg.MaxRetries,
			"error", lastErr)

		sleepDuration := backoffDelay(cfg, attempt)

		select {
		case <-time.After(sleepDuration):
			continue
		case <-ctx.Done():
			return fmt.Errorf("%s context cancelled during backoff: %w", opName, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", opName, cfg.MaxRetries, lastErr)
}

// backoffDelay computes BaseDelay * 2^attempt plus up to 50% jitter, capped at MaxDelay.
func backoffDelay(cfg cloud.RetryConfig, attempt int) time.Duration {
	backoff := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))

	sleepDuration := time.Duration(backoff)
	if half := int64(backoff) / 2; half > 0 {
		sleepDuration += time.Duration(rand.Int63n(half))
	}

	if cfg.MaxDelay > 0 {
		sleepDuration = min(sleepDuration, cfg.MaxDelay)
	}
	return sleepDuration
}

func setIfEmpty(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

func hostFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	return u.Host, nil
}
