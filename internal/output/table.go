package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/batch"
	"github.com/aravindh-murugesan/vmpower-go/internal/cloud/openstack"
)

// TableFormatter formats results as human-readable tables.
type TableFormatter struct{}

// FormatReport writes one row per batch.
func (f *TableFormatter) FormatReport(report batch.Report) (string, error) {
	var buf bytes.Buffer

	if report.AuthError != "" {
		fmt.Fprintf(&buf, "Authentication failed: %s\n", report.AuthError)
	}
	if len(report.Results) == 0 {
		buf.WriteString("No batches processed\n")
		return buf.String(), nil
	}

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "BATCH\tOUTCOME\tATTEMPTS\tVMS\tFAILED")
	for _, res := range report.Results {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			res.Index,
			res.Outcome,
			res.Attempts,
			joinOrDash(res.VMs),
			joinOrDash(res.Failed))
	}
	if err := w.Flush(); err != nil {
		return "", err
	}

	fmt.Fprintf(&buf, "\n%d succeeded, %d exhausted, %d skipped, %d cancelled (run %s, action %s, took %s)\n",
		report.Count(batch.OutcomeSucceeded),
		report.Count(batch.OutcomeExhausted),
		report.Count(batch.OutcomeSkipped),
		report.Count(batch.OutcomeCancelled),
		report.RunID,
		report.Action,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))

	return buf.String(), nil
}

// FormatVMList formats a list of VMs as a table.
func (f *TableFormatter) FormatVMList(vms []openstack.VM) (string, error) {
	if len(vms) == 0 {
		return "No VMs found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPOWER")
	for _, vm := range vms {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			vm.ID,
			orDash(vm.Name),
			orDash(vm.Status),
			orDash(vm.PowerState))
	}

	if err := w.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinOrDash(ids []string) string {
	return orDash(strings.Join(ids, ","))
}
