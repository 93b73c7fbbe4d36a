package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Manifest is an author-supplied component manifest.json. It is an arbitrary
// JSON object; top-level key order is kept so repackaged manifests read the
// same as the source file.
type Manifest struct {
	fields   *orderedmap.OrderedMap[string, any]
	requires []string
}

// ParseManifest decodes a manifest.json document. The document must be a JSON object.
func ParseManifest(data []byte) (*Manifest, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("manifest: expected a JSON object")
	}
	fields := orderedmap.New[string, any]()
	if err := json.Unmarshal(trimmed, fields); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	requires, err := parseRequires(trimmed)
	if err != nil {
		return nil, err
	}
	return &Manifest{fields: fields, requires: requires}, nil
}

// NewManifest builds a manifest from key/value pairs, in order.
func NewManifest(pairs ...any) *Manifest {
	m := &Manifest{fields: orderedmap.New[string, any]()}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		m.fields.Set(key, pairs[i+1])
	}
	if raw, err := json.Marshal(m.fields); err == nil {
		m.requires, _ = parseRequires(raw)
	}
	return m
}

// parseRequires flattens "requires", which may be a list of names or an
// object keyed by name.
func parseRequires(data []byte) ([]string, error) {
	var probe struct {
		Requires json.RawMessage `json:"requires"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	raw := bytes.TrimSpace(probe.Requires)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, nil
	}
	switch raw[0] {
	case '[':
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return nil, fmt.Errorf("manifest: requires: %w", err)
		}
		return names, nil
	case '{':
		deps := orderedmap.New[string, any]()
		if err := json.Unmarshal(raw, deps); err != nil {
			return nil, fmt.Errorf("manifest: requires: %w", err)
		}
		names := make([]string, 0, deps.Len())
		for pair := deps.Oldest(); pair != nil; pair = pair.Next() {
			names = append(names, pair.Key)
		}
		return names, nil
	}
	return []string{}, nil
}

// Get returns the raw value stored under key.
func (m *Manifest) Get(key string) (any, bool) {
	if m == nil || m.fields == nil {
		return nil, false
	}
	return m.fields.Get(key)
}

func (m *Manifest) str(key string) string {
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Name returns the manifest "name" field.
func (m *Manifest) Name() string { return m.str("name") }

// Type returns the manifest "type" field.
func (m *Manifest) Type() string { return m.str("type") }

// Description returns the manifest "description" field.
func (m *Manifest) Description() string { return m.str("description") }

// Requires returns the declared dependency names in declaration order.
func (m *Manifest) Requires() []string {
	if m == nil {
		return []string{}
	}
	out := make([]string, len(m.requires))
	copy(out, m.requires)
	return out
}

// With returns a copy of the manifest with key set to value. Existing keys
// keep their position; new keys are appended.
func (m *Manifest) With(key string, value any) *Manifest {
	out := &Manifest{fields: orderedmap.New[string, any](), requires: m.Requires()}
	if m != nil && m.fields != nil {
		for pair := m.fields.Oldest(); pair != nil; pair = pair.Next() {
			out.fields.Set(pair.Key, pair.Value)
		}
	}
	out.fields.Set(key, value)
	return out
}

// MarshalJSON encodes the manifest with its original key order.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	if m == nil || m.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.fields)
}

// Indented renders the manifest as two-space indented JSON.
func (m *Manifest) Indented() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
