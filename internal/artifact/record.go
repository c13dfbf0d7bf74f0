// Package artifact defines the canonical model record and the four
// co-located views (list, map, by-provider, metadata) published for each
// catalog version.
package artifact

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// codec is the std-compatible sonic config: map keys come out sorted, so
// serialized artifacts are byte-stable for identical content.
var codec = sonic.ConfigStd

// CapabilityPrefix marks the dynamic boolean capability flags discovered
// on upstream records ("supports_function_calling", "supports_vision", ...).
const CapabilityPrefix = "supports_"

// LegacyCapabilities are always present on a serialized record, defaulting
// to false, so consumers of the pre-discovery API keep getting booleans.
var LegacyCapabilities = []string{
	"supports_function_calling",
	"supports_vision",
	"supports_json_mode",
	"supports_parallel_functions",
}

// ModelRecord is the canonical unit of the catalog. The discovered
// capability flags live in Capabilities and are inlined as top-level
// supports_* keys when serialized, matching the upstream field shape.
type ModelRecord struct {
	ProviderID   string `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	ModelID      string `json:"model_id"`
	ModelName    string `json:"model_name"`

	MaxInputTokens  *int `json:"max_input_tokens"`
	MaxOutputTokens *int `json:"max_output_tokens"`

	InputCostPerToken    float64 `json:"input_cost_per_token"`
	InputCostPerMillion  float64 `json:"input_cost_per_million"`
	OutputCostPerToken   float64 `json:"output_cost_per_token"`
	OutputCostPerMillion float64 `json:"output_cost_per_million"`

	CacheReadCostPerToken    *float64 `json:"cache_read_cost_per_token,omitempty"`
	CacheReadCostPerMillion  *float64 `json:"cache_read_cost_per_million,omitempty"`
	CacheWriteCostPerToken   *float64 `json:"cache_write_cost_per_token,omitempty"`
	CacheWriteCostPerMillion *float64 `json:"cache_write_cost_per_million,omitempty"`

	Capabilities map[string]bool `json:"-"`

	ModelType       string  `json:"model_type"`
	DeprecationDate *string `json:"deprecation_date"`
}

// modelRecordAlias drops the custom marshaler so the fixed fields can be
// round-tripped without recursion.
type modelRecordAlias ModelRecord

// MarshalJSON inlines the capability flags as top-level supports_* keys
// next to the fixed fields.
func (r ModelRecord) MarshalJSON() ([]byte, error) {
	fixed, err := codec.Marshal(modelRecordAlias(r))
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := codec.Unmarshal(fixed, &obj); err != nil {
		return nil, err
	}
	for name, val := range r.Capabilities {
		obj[name] = val
	}
	return codec.Marshal(obj)
}

// UnmarshalJSON collects top-level supports_* keys back into Capabilities.
func (r *ModelRecord) UnmarshalJSON(data []byte) error {
	var fixed modelRecordAlias
	if err := codec.Unmarshal(data, &fixed); err != nil {
		return err
	}
	*r = ModelRecord(fixed)

	var obj map[string]any
	if err := codec.Unmarshal(data, &obj); err != nil {
		return err
	}
	for key, val := range obj {
		if !strings.HasPrefix(key, CapabilityPrefix) {
			continue
		}
		b, ok := val.(bool)
		if !ok {
			continue
		}
		if r.Capabilities == nil {
			r.Capabilities = make(map[string]bool)
		}
		r.Capabilities[key] = b
	}
	return nil
}

// Capability reports a flag's value; absent flags read as false.
func (r *ModelRecord) Capability(name string) bool {
	return r.Capabilities[name]
}

// Validate checks the invariants every published record must hold.
func (r *ModelRecord) Validate() error {
	if r.ProviderID == "" {
		return fmt.Errorf("record %q: empty provider_id", r.ModelID)
	}
	if r.ModelID == "" {
		return fmt.Errorf("provider %q: empty model_id", r.ProviderID)
	}
	if r.InputCostPerToken < 0 || r.OutputCostPerToken < 0 {
		return fmt.Errorf("record %q: negative cost", r.ModelID)
	}
	return nil
}
