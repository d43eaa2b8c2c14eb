package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// FeatureSchema is the ordered list of column names the predictor was
// trained on. It never changes after construction.
type FeatureSchema struct {
	names []string
	index map[string]int
}

// schemaMapping is the keyed form of a schema file.
type schemaMapping struct {
	FeatureColumns []string `json:"feature_columns" yaml:"feature_columns"`
}

// NewFeatureSchema validates names and copies them into a schema.
func NewFeatureSchema(names []string) (*FeatureSchema, error) {
	if len(names) == 0 {
		return nil, errors.New("schema lists no features")
	}
	s := &FeatureSchema{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("feature %d has an empty name", i)
		}
		if _, dup := s.index[name]; dup {
			return nil, fmt.Errorf("feature %q listed twice", name)
		}
		s.names[i] = name
		s.index[name] = i
	}
	return s, nil
}

// Names returns a copy of the feature names in training order.
func (s *FeatureSchema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *FeatureSchema) Len() int {
	return len(s.names)
}

// Index returns the position of name in the schema.
func (s *FeatureSchema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// LoadSchema reads a schema file. JSON and YAML are accepted; each may hold
// either a bare list of names or a mapping with a feature_columns key.
func LoadSchema(path string) (*FeatureSchema, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	names, err := decodeSchema(payload, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, err
	}
	return NewFeatureSchema(names)
}

func decodeSchema(payload []byte, ext string) ([]string, error) {
	unmarshal := json.Unmarshal
	if ext == ".yaml" || ext == ".yml" {
		unmarshal = yaml.Unmarshal
	}

	var names []string
	listErr := unmarshal(payload, &names)
	if listErr == nil {
		return names, nil
	}

	var mapping schemaMapping
	if err := unmarshal(payload, &mapping); err != nil {
		return nil, fmt.Errorf("decode schema: %w", listErr)
	}
	if mapping.FeatureColumns == nil {
		return nil, errors.New("decode schema: no feature_columns key")
	}
	return mapping.FeatureColumns, nil
}
