package kwargs

import (
	"fmt"

	"github.com/ajitpratap0/nebula-ml/pkg/json"
)

type jsonEntry struct {
	Key   string `json:"key"`
	Type  Kind   `json:"type"`
	Value string `json:"value"`
}

// MarshalJSON encodes the arguments as an ordered list of
// {"key","type","value"} objects.
func (a *Args) MarshalJSON() ([]byte, error) {
	entries := make([]jsonEntry, 0, a.Len())
	if a != nil {
		for _, k := range a.keys {
			v := a.values[k]
			entries = append(entries, jsonEntry{Key: k, Type: v.kind, Value: v.String()})
		}
	}
	return json.Marshal(entries)
}

// UnmarshalJSON restores arguments written by MarshalJSON
func (a *Args) UnmarshalJSON(data []byte) error {
	var entries []jsonEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*a = Args{values: make(map[string]Value, len(entries))}
	for _, e := range entries {
		v, err := Coerce(e.Value, e.Type)
		if err != nil {
			return fmt.Errorf("kwarg %s: %w", e.Key, err)
		}
		a.Set(e.Key, v)
	}
	return nil
}
