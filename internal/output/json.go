package output

import (
	"encoding/json"

	"github.com/aravindh-murugesan/vmpower-go/internal/batch"
	"github.com/aravindh-murugesan/vmpower-go/internal/cloud/openstack"
)

// JSONFormatter formats results as indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) FormatReport(report batch.Report) (string, error) {
	return marshalJSON(report)
}

func (f *JSONFormatter) FormatVMList(vms []openstack.VM) (string, error) {
	if vms == nil {
		vms = []openstack.VM{}
	}
	return marshalJSON(vms)
}

func marshalJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
