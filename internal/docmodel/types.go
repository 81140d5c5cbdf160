package docmodel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Types is the named semantic-type registry referenced by
// rules.columns.*.type (e.g. "email", "uuid").
type Types struct {
	Version string             `yaml:"version"`
	Types   map[string]TypeDef `yaml:"types"`
}

// TypeDef is a named regex+tag semantic type.
type TypeDef struct {
	Pattern string   `yaml:"pattern,omitempty"`
	Tags    []string `yaml:"tags,omitempty"`
}

// LoadTypes parses a types document from a YAML file.
func LoadTypes(path string) (*Types, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docmodel: read types: %w", err)
	}
	return ParseTypes(data)
}

// ParseTypes parses a types document from YAML bytes.
func ParseTypes(data []byte) (*Types, error) {
	t := &Types{Types: map[string]TypeDef{}}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("docmodel: parse types: %w", err)
	}
	return t, nil
}

// Resolve looks up a named type.
func (t *Types) Resolve(name string) (TypeDef, bool) {
	d, ok := t.Types[name]
	return d, ok
}

// Groups is the named-set-of-approver-emails registry.
type Groups struct {
	Version string               `yaml:"version"`
	Groups  map[string]GroupDef  `yaml:"groups"`
}

// GroupDef is a named set of approver emails. Invariant: non-empty.
type GroupDef struct {
	Members []string `yaml:"members"`
}

// LoadGroups parses a groups document from a YAML file.
func LoadGroups(path string) (*Groups, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docmodel: read groups: %w", err)
	}
	return ParseGroups(data)
}

// ParseGroups parses a groups document from YAML bytes and validates the
// zero-member-group invariant.
func ParseGroups(data []byte) (*Groups, error) {
	g := &Groups{Groups: map[string]GroupDef{}}
	if err := yaml.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("docmodel: parse groups: %w", err)
	}
	for name, def := range g.Groups {
		if len(def.Members) == 0 {
			return nil, fmt.Errorf("docmodel: group %q has zero members", name)
		}
	}
	return g, nil
}

// Resolve returns the member emails of a named group.
func (g *Groups) Resolve(name string) ([]string, bool) {
	def, ok := g.Groups[name]
	if !ok {
		return nil, false
	}
	return def.Members, true
}
