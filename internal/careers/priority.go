package careers

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type priorityFile struct {
	Departments []string `yaml:"departments"`
}

// LoadPriority reads a department order from a YAML file of the form
//
//	departments:
//	  - Clinical Operations
//	  - Software
//
// An empty path returns DefaultPriority.
func LoadPriority(path string) ([]string, error) {
	if path == "" {
		return DefaultPriority, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading priority file: %w", err)
	}
	return ParsePriority(data)
}

// ParsePriority decodes a priority document, dropping blank and repeated
// names.
func ParsePriority(data []byte) ([]string, error) {
	var f priorityFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing priority file: %w", err)
	}
	seen := make(map[string]bool, len(f.Departments))
	out := make([]string, 0, len(f.Departments))
	for _, d := range f.Departments {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("priority file lists no departments")
	}
	return out, nil
}
