package roster

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mapping renames feed labels to canonical names. Several labels may map to
// the same canonical name, which merges them into one department or unit.
//
//	departments:
//	  ANTHRO DEPT: Anthropology
//	  ANTHROPOLOGY DEPT: Anthropology
//	units:
//	  BX: UAW 4811
type Mapping struct {
	Departments map[string]string `yaml:"departments"`
	Units       map[string]string `yaml:"units"`
}

// LoadMapping reads a YAML mapping document. An empty document is an empty
// mapping.
func LoadMapping(r io.Reader) (Mapping, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Mapping{}, fmt.Errorf("failed to read mapping: %w", err)
	}

	var raw Mapping
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Mapping{}, &ValidationError{Field: "mapping", Reason: err.Error()}
		}
	}

	return Mapping{
		Departments: trimKeys(raw.Departments),
		Units:       trimKeys(raw.Units),
	}, nil
}

// LoadMappingFile reads a YAML mapping file. A missing file is an empty mapping.
func LoadMappingFile(path string) (Mapping, error) {
	if path == "" {
		return Mapping{}, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Mapping{}, nil
	}
	if err != nil {
		return Mapping{}, fmt.Errorf("failed to open mapping file: %w", err)
	}
	defer f.Close()

	return LoadMapping(f)
}

// Department returns the canonical department name for a feed label. Labels
// without a mapping are title-cased.
func (m Mapping) Department(label string) string {
	label = strings.TrimSpace(label)
	if name, ok := m.Departments[label]; ok {
		return name
	}
	return TitleCase(label)
}

// Unit returns the canonical unit name for a feed label. Labels without a
// mapping are used as they are.
func (m Mapping) Unit(label string) string {
	label = strings.TrimSpace(label)
	if name, ok := m.Units[label]; ok {
		return name
	}
	return label
}

func trimKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
