package powerlevel

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed hierarchies.yaml
var defaultHierarchies []byte

// DefaultCategory is used when a caller passes an empty category
const DefaultCategory = "cultivation"

// Stage is one rank in a progression ladder
type Stage struct {
	Name        string `yaml:"name"`
	Order       int    `yaml:"order"`
	Category    string `yaml:"-"`
	Description string `yaml:"description,omitempty"`
	TypicalPace string `yaml:"typical_pace,omitempty"`
}

// Hierarchy is the ordered stage list of one category
type Hierarchy struct {
	Category string  `yaml:"category"`
	Stages   []Stage `yaml:"stages"`
}

type hierarchyFile struct {
	Categories []Hierarchy `yaml:"categories"`
}

// Stage returns the stage with the given order
func (h *Hierarchy) Stage(order int) (Stage, bool) {
	for _, s := range h.Stages {
		if s.Order == order {
			return s, true
		}
	}
	return Stage{}, false
}

// LoadHierarchies decodes a YAML hierarchy document. Stages are sorted by
// order; orders must be positive and unique within a category.
func LoadHierarchies(r io.Reader) ([]Hierarchy, error) {
	var file hierarchyFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding hierarchies: %w", err)
	}

	for i := range file.Categories {
		h := &file.Categories[i]
		h.Category = strings.ToLower(strings.TrimSpace(h.Category))
		if h.Category == "" {
			return nil, fmt.Errorf("hierarchy %d: category is required", i)
		}

		seen := make(map[int]bool, len(h.Stages))
		for j := range h.Stages {
			s := &h.Stages[j]
			if s.Order <= 0 {
				return nil, fmt.Errorf("%s: stage %q must have a positive order", h.Category, s.Name)
			}
			if seen[s.Order] {
				return nil, fmt.Errorf("%s: duplicate order %d", h.Category, s.Order)
			}
			seen[s.Order] = true
			s.Category = h.Category
		}
		sort.Slice(h.Stages, func(a, b int) bool {
			return h.Stages[a].Order < h.Stages[b].Order
		})
	}

	return file.Categories, nil
}

// LoadHierarchyFile reads an override hierarchy file from disk
func LoadHierarchyFile(path string) ([]Hierarchy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening hierarchy file: %w", err)
	}
	defer f.Close()
	return LoadHierarchies(f)
}

func mustDefaultHierarchies() []Hierarchy {
	hs, err := LoadHierarchies(strings.NewReader(string(defaultHierarchies)))
	if err != nil {
		panic(fmt.Sprintf("embedded hierarchies: %v", err))
	}
	return hs
}
