package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/cloud"
)

type fakeAuth struct {
	token string
	err   error
	calls int
}

func (f *fakeAuth) Authenticate(ctx context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

// fakeInvoker fails a VM on the attempts listed for it (1-based, per VM).
type fakeInvoker struct {
	failOn map[string][]int
	// failAlways lists VMs that never succeed.
	failAlways map[string]bool

	perVM  map[string]int
	calls  []string
	tokens []string
}

func (f *fakeInvoker) PerformVMAction(ctx context.Context, token, vmID string, action cloud.Action) error {
	if f.perVM == nil {
		f.perVM = map[string]int{}
	}
	f.perVM[vmID]++
	f.calls = append(f.calls, vmID)
	f.tokens = append(f.tokens, token)

	if f.failAlways[vmID] || slices.Contains(f.failOn[vmID], f.perVM[vmID]) {
		return errors.New("status 500")
	}
	return nil
}

type recordingSleeper struct {
	sleeps []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.sleeps = append(r.sleeps, d)
	return nil
}

type recordingNotifier struct {
	results []Result
}

func (n *recordingNotifier) NotifyBatchFailure(ctx context.Context, report Report, result Result) error {
	n.results = append(n.results, result)
	return nil
}

func newTestOrchestrator(auth *fakeAuth, inv *fakeInvoker, sleeper *recordingSleeper) *Orchestrator {
	return &Orchestrator{
		Auth:    auth,
		Invoker: inv,
		Policy:  cloud.BatchRetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sleep:   sleeper.Sleep,
	}
}

func TestOrchestrator_Run(t *testing.T) {
	tests := []struct {
		name         string
		batches      []Batch
		invoker      *fakeInvoker
		wantOutcomes []Outcome
		wantAttempts []int
		wantSleeps   int
		wantCalls    []string
	}{
		{
			name:         "All Successful Batch Runs Once Without Sleeping",
			batches:      []Batch{{"vm-1", "vm-2"}},
			invoker:      &fakeInvoker{},
			wantOutcomes: []Outcome{OutcomeSucceeded},
			wantAttempts: []int{1},
			wantSleeps:   0,
			wantCalls:    []string{"vm-1", "vm-2"},
		},
		{
			name:         "Always Failing Batch Exhausts Attempts",
			batches:      []Batch{{"vm-X"}},
			invoker:      &fakeInvoker{failAlways: map[string]bool{"vm-X": true}},
			wantOutcomes: []Outcome{OutcomeExhausted},
			wantAttempts: []int{3},
			wantSleeps:   2,
			wantCalls:    []string{"vm-X", "vm-X", "vm-X"},
		},
		{
			name:         "Recovers On Second Attempt",
			batches:      []Batch{{"vm-1"}},
			invoker:      &fakeInvoker{failOn: map[string][]int{"vm-1": {1}}},
			wantOutcomes: []Outcome{OutcomeSucceeded},
			wantAttempts: []int{2},
			wantSleeps:   1,
			wantCalls:    []string{"vm-1", "vm-1"},
		},
		{
			name:         "Retry Reinvokes Already Successful VMs",
			batches:      []Batch{{"vm-A", "vm-B"}},
			invoker:      &fakeInvoker{failOn: map[string][]int{"vm-B": {1, 2}}},
			wantOutcomes: []Outcome{OutcomeSucceeded},
			wantAttempts: []int{3},
			wantSleeps:   2,
			wantCalls:    []string{"vm-A", "vm-B", "vm-A", "vm-B", "vm-A", "vm-B"},
		},
		{
			name:    "Exhausted Batch Does Not Block Later Batches",
			batches: []Batch{{"vm-X"}, {"vm-Y"}},
			invoker: &fakeInvoker{failAlways: map[string]bool{"vm-X": true}},
			wantOutcomes: []Outcome{
				OutcomeExhausted,
				OutcomeSucceeded,
			},
			wantAttempts: []int{3, 1},
			wantSleeps:   2,
			wantCalls:    []string{"vm-X", "vm-X", "vm-X", "vm-Y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{token: "tok"}
			sleeper := &recordingSleeper{}
			o := newTestOrchestrator(auth, tt.invoker, sleeper)

			report, err := o.Run(context.Background(), tt.batches, cloud.PowerUp())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if len(report.Results) != len(tt.wantOutcomes) {
				t.Fatalf("results = %d, want %d", len(report.Results), len(tt.wantOutcomes))
			}
			for i, res := range report.Results {
				if res.Outcome != tt.wantOutcomes[i] {
					t.Errorf("batch %d outcome = %s, want %s", i+1, res.Outcome, tt.wantOutcomes[i])
				}
				if res.Attempts != tt.wantAttempts[i] {
					t.Errorf("batch %d attempts = %d, want %d", i+1, res.Attempts, tt.wantAttempts[i])
				}
				if res.Index != i+1 {
					t.Errorf("batch %d index = %d", i+1, res.Index)
				}
			}
			if len(sleeper.sleeps) != tt.wantSleeps {
				t.Errorf("sleeps = %d, want %d", len(sleeper.sleeps), tt.wantSleeps)
			}
			for _, d := range sleeper.sleeps {
				if d != 5*time.Second {
					t.Errorf("sleep duration = %v, want 5s", d)
				}
			}
			if !slices.Equal(tt.invoker.calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", tt.invoker.calls, tt.wantCalls)
			}
			if auth.calls != 1 {
				t.Errorf("authenticate calls = %d, want 1", auth.calls)
			}
		})
	}
}

func TestOrchestrator_ScenarioPartialRecovery(t *testing.T) {
	inv := &fakeInvoker{failOn: map[string][]int{"vm-B": {1, 2}}}
	sleeper := &recordingSleeper{}
	o := newTestOrchestrator(&fakeAuth{token: "tok"}, inv, sleeper)

	report, err := o.Run(context.Background(), []Batch{{"vm-A", "vm-B"}}, cloud.PowerUp())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	res := report.Results[0]
	if res.Outcome != OutcomeSucceeded || res.Attempts != 3 || len(res.Failed) != 0 {
		t.Errorf("result = %+v, want succeeded after 3 attempts", res)
	}
	if !slices.Equal(sleeper.sleeps, []time.Duration{5 * time.Second, 5 * time.Second}) {
		t.Errorf("sleeps = %v, want two 5s pauses", sleeper.sleeps)
	}
	if !report.Succeeded() {
		t.Errorf("Succeeded() = false, want true")
	}
}

func TestOrchestrator_ScenarioExhaustion(t *testing.T) {
	inv := &fakeInvoker{failAlways: map[string]bool{"vm-X": true}}
	sleeper := &recordingSleeper{}
	notifier := &recordingNotifier{}
	o := newTestOrchestrator(&fakeAuth{token: "tok"}, inv, sleeper)
	o.Notifier = notifier

	report, err := o.Run(context.Background(), []Batch{{"vm-X"}}, cloud.PowerUp())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (exhaustion is not an error)", err)
	}

	res := report.Results[0]
	if res.Outcome != OutcomeExhausted || res.Attempts != 3 {
		t.Errorf("result = %+v, want exhausted after 3 attempts", res)
	}
	if !slices.Equal(res.Failed, []string{"vm-X"}) {
		t.Errorf("Failed = %v, want [vm-X]", res.Failed)
	}
	if len(sleeper.sleeps) != 2 {
		t.Errorf("sleeps = %d, want 2", len(sleeper.sleeps))
	}
	if len(notifier.results) != 1 || notifier.results[0].Index != 1 {
		t.Errorf("notifications = %+v, want one for batch 1", notifier.results)
	}
	if report.Succeeded() {
		t.Errorf("Succeeded() = true, want false")
	}
}

func TestOrchestrator_AuthFailureSkipsAllBatches(t *testing.T) {
	inv := &fakeInvoker{}
	sleeper := &recordingSleeper{}
	notifier := &recordingNotifier{}
	o := newTestOrchestrator(&fakeAuth{err: errors.New("status 401")}, inv, sleeper)
	o.Notifier = notifier

	report, err := o.Run(context.Background(), []Batch{{"vm-1"}, {"vm-2", "vm-3"}}, cloud.PowerUp())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(inv.calls) != 0 {
		t.Errorf("invocations = %v, want none", inv.calls)
	}
	if len(sleeper.sleeps) != 0 {
		t.Errorf("sleeps = %d, want 0", len(sleeper.sleeps))
	}
	if report.AuthError == "" {
		t.Error("AuthError is empty")
	}
	if got := report.Count(OutcomeSkipped); got != 2 {
		t.Errorf("skipped batches = %d, want 2", got)
	}
	for _, res := range report.Results {
		if res.Attempts != 0 {
			t.Errorf("batch %d attempts = %d, want 0", res.Index, res.Attempts)
		}
	}
	if len(notifier.results) != 1 {
		t.Errorf("notifications = %d, want 1", len(notifier.results))
	}
}

func TestOrchestrator_PassesTokenToInvoker(t *testing.T) {
	inv := &fakeInvoker{}
	o := newTestOrchestrator(&fakeAuth{token: "bearer-1"}, inv, &recordingSleeper{})

	if _, err := o.Run(context.Background(), []Batch{{"a", "b"}}, cloud.Shutdown(false)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i, tok := range inv.tokens {
		if tok != "bearer-1" {
			t.Errorf("call %d token = %q, want bearer-1", i, tok)
		}
	}
}

func TestOrchestrator_RetryFailedOnly(t *testing.T) {
	inv := &fakeInvoker{failOn: map[string][]int{"vm-B": {1, 2}}}
	sleeper := &recordingSleeper{}
	o := newTestOrchestrator(&fakeAuth{token: "tok"}, inv, sleeper)
	o.Policy.RetryFailedOnly = true

	report, err := o.Run(context.Background(), []Batch{{"vm-A", "vm-B"}}, cloud.PowerUp())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"vm-A", "vm-B", "vm-B", "vm-B"}
	if !slices.Equal(inv.calls, want) {
		t.Errorf("calls = %v, want %v", inv.calls, want)
	}
	if report.Results[0].Outcome != OutcomeSucceeded || report.Results[0].Attempts != 3 {
		t.Errorf("result = %+v", report.Results[0])
	}
}

func TestOrchestrator_SingleAttemptPolicyNeverSleeps(t *testing.T) {
	inv := &fakeInvoker{failAlways: map[string]bool{"vm-1": true}}
	sleeper := &recordingSleeper{}
	o := newTestOrchestrator(&fakeAuth{token: "tok"}, inv, sleeper)
	o.Policy.MaxAttempts = 1

	report, err := o.Run(context.Background(), []Batch{{"vm-1"}}, cloud.PowerUp())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Results[0].Outcome != OutcomeExhausted || len(sleeper.sleeps) != 0 {
		t.Errorf("result = %+v, sleeps = %d", report.Results[0], len(sleeper.sleeps))
	}
}

func TestOrchestrator_InvalidPolicy(t *testing.T) {
	o := newTestOrchestrator(&fakeAuth{token: "tok"}, &fakeInvoker{}, &recordingSleeper{})
	o.Policy.MaxAttempts = 0

	if _, err := o.Run(context.Background(), []Batch{{"vm-1"}}, cloud.PowerUp()); err == nil {
		t.Fatal("Run() error = nil, want error for MaxAttempts 0")
	}
}

func TestOrchestrator_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inv := &fakeInvoker{failAlways: map[string]bool{"vm-1": true}}
	o := newTestOrchestrator(&fakeAuth{token: "tok"}, inv, &recordingSleeper{})
	o.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return SleepContext(ctx, d)
	}

	report, err := o.Run(ctx, []Batch{{"vm-1"}, {"vm-2"}}, cloud.PowerUp())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(report.Results))
	}
	if report.Results[0].Outcome != OutcomeCancelled || report.Results[1].Outcome != OutcomeCancelled {
		t.Errorf("outcomes = %s, %s; want cancelled, cancelled", report.Results[0].Outcome, report.Results[1].Outcome)
	}
	if !slices.Equal(inv.calls, []string{"vm-1"}) {
		t.Errorf("calls = %v, want [vm-1]", inv.calls)
	}
}

func TestSleepContext(t *testing.T) {
	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("SleepContext() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("SleepContext() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("SleepContext() did not return promptly on cancellation")
	}
}
