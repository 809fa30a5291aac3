package batch

import (
	"context"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/cloud"
)

// Batch is an ordered group of VM IDs retried together as one unit.
type Batch []string

// Outcome is the final state of a batch within one run.
type Outcome string

const (
	// OutcomeSucceeded means every VM in the batch accepted the action on the last pass.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeExhausted means the batch still had failures after the last allowed attempt.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeSkipped means the batch was never attempted because no token was obtained.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeCancelled means the run was cancelled before the batch finished.
	OutcomeCancelled Outcome = "cancelled"
)

// Authenticator obtains the bearer token for a run.
type Authenticator interface {
	Authenticate(ctx context.Context) (string, error)
}

// Invoker applies an action to a single VM. Any error counts as a failed invocation.
type Invoker interface {
	PerformVMAction(ctx context.Context, token, vmID string, action cloud.Action) error
}

// Notifier is told about batches that did not succeed.
type Notifier interface {
	NotifyBatchFailure(ctx context.Context, report Report, result Result) error
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Result is the per-batch record of a run.
type Result struct {
	Index    int     `json:"index" yaml:"index"`
	VMs      Batch   `json:"vms" yaml:"vms"`
	Outcome  Outcome `json:"outcome" yaml:"outcome"`
	Attempts int     `json:"attempts" yaml:"attempts"`
	// Failed lists the VM IDs that failed on the final attempt.
	Failed []string `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Report summarizes a whole run.
type Report struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Action     string    `json:"action" yaml:"action"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	// AuthError is set when authentication failed and no batch was attempted.
	AuthError string   `json:"auth_error,omitempty" yaml:"auth_error,omitempty"`
	Results   []Result `json:"results" yaml:"results"`
}

// Count returns how many batches ended with the given outcome.
func (r Report) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// Succeeded reports whether authentication worked and every batch succeeded.
func (r Report) Succeeded() bool {
	return r.AuthError == "" && r.Count(OutcomeSucceeded) == len(r.Results)
}
