package openstack

import (
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// VM is the subset of a compute VM record shown by list-vms.
type VM struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Status     string `json:"status" yaml:"status"`
	PowerState string `json:"power_state" yaml:"power_state"`
}

// collectionKeys are the envelope keys the VM collection may be wrapped in.
var collectionKeys = []string{"vms", "data", "servers", "items"}

// parseVMList decodes the VM collection, accepting either a bare array or an
// object wrapping the array under one of collectionKeys.
func parseVMList(raw []byte) ([]VM, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode vm list: %w", err)
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, key := range collectionKeys {
			if list, ok := v[key].([]any); ok {
				items = list
				break
			}
		}
		if items == nil {
			return nil, fmt.Errorf("vm list response has none of the keys %v", collectionKeys)
		}
	default:
		return nil, fmt.Errorf("unexpected vm list response of type %T", doc)
	}

	vms := make([]VM, 0, len(items))
	for i, item := range items {
		vm, err := decodeWeak[VM](item)
		if err != nil {
			return nil, fmt.Errorf("vm list item %d: %w", i, err)
		}
		vms = append(vms, *vm)
	}
	return vms, nil
}

// decodeWeak is a generic helper to decode loosely typed JSON into a struct using
// its json tags. Weak typing converts numbers and booleans to strings.
func decodeWeak[T any](input any) (*T, error) {
	var result T

	config := &mapstructure.DecoderConfig{
		Result:           &result,
		WeaklyTypedInput: true,
		TagName:          "json",
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(input); err != nil {
		return nil, err
	}

	return &result, nil
}
