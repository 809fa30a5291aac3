package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aravindh-murugesan/vmpower-go/internal/batch"
)

func TestWebhook_Notify(t *testing.T) {
	var got BatchFailure
	var user, pass string
	var hasAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, hasAuth = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := &BatchNotifier{
		Webhook:  Webhook{URL: srv.URL, Username: "alert", Password: "pw"},
		Endpoint: "27.126.152.210",
	}

	report := batch.Report{RunID: "req-1", Action: "powerup"}
	result := batch.Result{Index: 2, VMs: batch.Batch{"vm-X"}, Failed: []string{"vm-X"}, Attempts: 3, Outcome: batch.OutcomeExhausted}

	if err := n.NotifyBatchFailure(context.Background(), report, result); err != nil {
		t.Fatalf("NotifyBatchFailure() error = %v", err)
	}

	if !hasAuth || user != "alert" || pass != "pw" {
		t.Errorf("basic auth = (%q, %q, %v)", user, pass, hasAuth)
	}
	if got.RunID != "req-1" || got.BatchIndex != 2 || got.Attempts != 3 || got.Outcome != batch.OutcomeExhausted {
		t.Errorf("payload = %+v", got)
	}
	if got.Message != "Batch 2 failed after 3 attempts" {
		t.Errorf("message = %q", got.Message)
	}
}

func TestWebhook_NotifyErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := Webhook{URL: srv.URL}
	if err := w.Notify(context.Background(), BatchFailure{}); err == nil {
		t.Fatal("Notify() error = nil, want error for 502")
	}
}

func TestBatchNotifier_DisabledIsNoop(t *testing.T) {
	n := &BatchNotifier{}
	if err := n.NotifyBatchFailure(context.Background(), batch.Report{}, batch.Result{}); err != nil {
		t.Errorf("NotifyBatchFailure() error = %v, want nil when no URL is set", err)
	}
}
