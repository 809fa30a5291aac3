// Package output renders run reports and VM lists in various formats (table, YAML, JSON).
package output

import (
	"fmt"

	"github.com/aravindh-murugesan/vmpower-go/internal/batch"
	"github.com/aravindh-murugesan/vmpower-go/internal/cloud/openstack"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// Formatter formats run results for output.
type Formatter interface {
	// FormatReport formats the outcome of a batch run.
	FormatReport(report batch.Report) (string, error)

	// FormatVMList formats a list of VMs.
	FormatVMList(vms []openstack.VM) (string, error)
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(format Format) (Formatter, error) {
	switch format {
	case FormatTable, "":
		return &TableFormatter{}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", format)
	}
}
