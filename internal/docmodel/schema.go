// Package docmodel holds the five user-authored configuration documents
// that drive Cori's authorization surface: schema, rules, role, types, and
// groups. Each document is a versioned, semantic-typed tree loaded from
// YAML.
package docmodel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Schema describes the tables Cori knows about, captured from the live
// database. It is read-only at runtime.
type Schema struct {
	Version string        `yaml:"version"`
	Tables  []SchemaTable `yaml:"tables"`
}

// SchemaTable describes one table's columns, primary key and foreign keys.
type SchemaTable struct {
	Name        string        `yaml:"name"`
	Columns     []SchemaColumn `yaml:"columns"`
	PrimaryKey  []string      `yaml:"primary_key"`
	ForeignKeys []ForeignKey  `yaml:"foreign_keys,omitempty"`
}

// SchemaColumn describes a single column.
type SchemaColumn struct {
	Name     string   `yaml:"name"`
	DataType string   `yaml:"data_type"`
	Nullable bool     `yaml:"nullable"`
	Enum     []string `yaml:"enum,omitempty"`
}

// ForeignKey describes a foreign key relationship.
type ForeignKey struct {
	Columns    []string `yaml:"columns"`
	RefTable   string   `yaml:"ref_table"`
	RefColumns []string `yaml:"ref_columns"`
}

// LoadSchema parses a schema document from a YAML file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docmodel: read schema: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema parses a schema document from YAML bytes.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("docmodel: parse schema: %w", err)
	}
	return &s, nil
}

// Table looks up a table definition by name.
func (s *Schema) Table(name string) (*SchemaTable, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// Column looks up a column definition within the table.
func (t *SchemaTable) Column(name string) (*SchemaColumn, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// HasColumn reports whether the table declares the given column.
func (t *SchemaTable) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}
