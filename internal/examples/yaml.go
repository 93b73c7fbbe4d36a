package examples

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// marshalYAML encodes v with two-space indentation.
func marshalYAML(v any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MarshalYAML is exported for documentation generators that embed snippets.
func MarshalYAML(v any) (string, error) {
	return marshalYAML(v)
}
