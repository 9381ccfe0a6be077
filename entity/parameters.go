package entity

import (
	"bytes"
	"encoding/json"
)

// Parameter is a single key/value pair on a package or action record.
// Final marks the parameter as protected from caller override.
type Parameter struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
	Init  bool            `json:"init,omitempty"`
	Final bool            `json:"final,omitempty"`
}

// ParameterList is the record representation of parameters and annotations
type ParameterList []Parameter

// Get returns the value for key and whether it is present
func (pl ParameterList) Get(key string) (json.RawMessage, bool) {
	for _, p := range pl {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// GetBool returns the boolean value for key. Absent keys and values that are
// not JSON true report false.
func (pl ParameterList) GetBool(key string) bool {
	v, ok := pl.Get(key)
	if !ok {
		return false
	}
	return bytes.Equal(bytes.TrimSpace(v), []byte("true"))
}

// GetString returns the string value for key, or "" when absent or not a string
func (pl ParameterList) GetString(key string) string {
	v, ok := pl.Get(key)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

// ToMap flattens the list into a key -> value map. Later entries win on
// duplicate keys, matching record-merge semantics.
func (pl ParameterList) ToMap() map[string]json.RawMessage {
	m := make(map[string]json.RawMessage, len(pl))
	for _, p := range pl {
		m[p.Key] = p.Value
	}
	return m
}

// FinalNames returns the set of parameter names marked final
func (pl ParameterList) FinalNames() map[string]struct{} {
	names := make(map[string]struct{})
	for _, p := range pl {
		if p.Final {
			names[p.Key] = struct{}{}
		}
	}
	return names
}

// MergeParameters overlays override onto base, producing a new list. Keys in
// override replace keys in base; base order is preserved for untouched keys.
func MergeParameters(base, override ParameterList) ParameterList {
	merged := make(ParameterList, 0, len(base)+len(override))
	overridden := make(map[string]bool, len(override))
	for _, p := range override {
		overridden[p.Key] = true
	}
	for _, p := range base {
		if !overridden[p.Key] {
			merged = append(merged, p)
		}
	}
	return append(merged, override...)
}
