package notifications

import (
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/batch"
)

type Webhook struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

// BatchFailure is the payload posted when a batch is exhausted or a run is skipped
// because authentication failed.
type BatchFailure struct {
	Service    string        `json:"service"`
	RunID      string        `json:"run_id"`
	Action     string        `json:"action"`
	Endpoint   string        `json:"endpoint"`
	BatchIndex int           `json:"batch_index,omitempty"`
	VMs        []string      `json:"vm_ids,omitempty"`
	FailedVMs  []string      `json:"failed_vm_ids,omitempty"`
	Attempts   int           `json:"attempts"`
	Outcome    batch.Outcome `json:"outcome"`
	Message    string        `json:"message"`
}
