package plan

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Decode reads a plan from YAML or JSON. JSON is accepted because it is a
// subset of YAML.
func Decode(data []byte) (*Input, error) {
	var in Input
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	return &in, nil
}

// LoadFile reads and decodes a plan file.
func LoadFile(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return Decode(data)
}
