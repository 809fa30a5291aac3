package output

import (
	"gopkg.in/yaml.v3"

	"github.com/aravindh-murugesan/vmpower-go/internal/batch"
	"github.com/aravindh-murugesan/vmpower-go/internal/cloud/openstack"
)

// YAMLFormatter formats results as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) FormatReport(report batch.Report) (string, error) {
	return marshalYAML(report)
}

func (f *YAMLFormatter) FormatVMList(vms []openstack.VM) (string, error) {
	if vms == nil {
		vms = []openstack.VM{}
	}
	return marshalYAML(vms)
}

func marshalYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
