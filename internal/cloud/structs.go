package cloud

import "time"

// RetryConfig defines the parameters for the exponential backoff and retry mechanism
// used on read-only API calls (e.g. listing VMs).
// It is never applied to authentication or to power actions; those are retried
// at the batch level by BatchRetryPolicy.
type RetryConfig struct {
	// MaxRetries is the maximum number of additional attempts after the initial failure.
	// For example, if MaxRetries is 3, the operation runs at most 4 times (1 initial + 3 retries).
	MaxRetries int

	// BaseDelay is the initial wait time before the first retry.
	// This duration increases exponentially with each attempt (BaseDelay * 2^attempt).
	BaseDelay time.Duration

	// MaxDelay is the hard limit for the sleep duration between retries.
	MaxDelay time.Duration

	// OperationTimeout is the total time limit for the entire operation, including all retries.
	OperationTimeout time.Duration
}

// Default batch retry settings.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 5 * time.Second
)

// BatchRetryPolicy controls how a batch of VMs is retried as a unit.
type BatchRetryPolicy struct {
	// MaxAttempts is the total number of full passes over a batch, including the first one.
	MaxAttempts int `mapstructure:"max-attempts" json:"max_attempts" yaml:"max_attempts"`

	// Delay is the fixed pause between two passes. It is never applied after a
	// successful pass or after the final attempt.
	Delay time.Duration `mapstructure:"delay" json:"delay" yaml:"delay"`

	// RetryFailedOnly limits later passes to the VM IDs that failed on the previous pass.
	// When false every VM in the batch is re-invoked on each attempt.
	RetryFailedOnly bool `mapstructure:"failed-only" json:"failed_only" yaml:"failed_only"`
}

// DefaultBatchRetryPolicy returns the policy used when nothing is configured.
func DefaultBatchRetryPolicy() BatchRetryPolicy {
	return BatchRetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultRetryDelay,
	}
}
