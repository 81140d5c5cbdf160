package docmodel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules is the user-edited document controlling tenancy, soft delete, and
// column validation. Unlike Schema, it is hand-maintained.
type Rules struct {
	Version string                `yaml:"version"`
	Tables  map[string]TableRules `yaml:"tables"`

	// AlwaysVisible names tables the Virtual Catalog exposes to every
	// role regardless of grant — global lookup tables such as
	// "countries" that every role should be able to introspect.
	AlwaysVisible []string `yaml:"always_visible,omitempty"`
}

// TableRules holds the rules for a single table. Tenant and Global are
// mutually exclusive: a table is either tenant-scoped via Tenant, or
// declared Global (shared across all tenants).
type TableRules struct {
	Description string                 `yaml:"description,omitempty"`
	Tenant      *TenantConfig          `yaml:"tenant,omitempty"`
	Global      bool                   `yaml:"global,omitempty"`
	SoftDelete  *SoftDeleteConfig      `yaml:"soft_delete,omitempty"`
	Columns     map[string]ColumnRules `yaml:"columns,omitempty"`
}

// IsTenantScoped reports whether this table declares an explicit tenant
// config and is not global. Documents.ResolveTenant also scopes a
// non-global table with no tenant entry, via the default "tenant_id"
// column; IsTenantScoped reports false for such a table.
func (t TableRules) IsTenantScoped() bool {
	return t.Tenant != nil && !t.Global
}

// TenantConfig captures either a direct tenant column or a tenant
// inherited through a foreign key to a parent table. Exactly one of
// Direct/Inherited is populated after unmarshalling.
type TenantConfig struct {
	Direct    string
	Inherited *InheritedTenant
}

// InheritedTenant describes tenancy inherited via a foreign key.
type InheritedTenant struct {
	Via        string `yaml:"via"`
	References string `yaml:"references"`
}

// UnmarshalYAML accepts a bare scalar column name or a {direct: <column>}
// mapping (direct tenancy), or a mapping with via/references (inherited
// tenancy), mirroring the untagged enum the original configuration
// format uses.
func (t *TenantConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		t.Direct = node.Value
		return nil
	}
	var m struct {
		Direct     string `yaml:"direct"`
		Via        string `yaml:"via"`
		References string `yaml:"references"`
	}
	if err := node.Decode(&m); err != nil {
		return fmt.Errorf("tenant config: expected scalar, {direct} or {via, references}: %w", err)
	}
	if m.Direct != "" {
		t.Direct = m.Direct
		return nil
	}
	t.Inherited = &InheritedTenant{Via: m.Via, References: m.References}
	return nil
}

// MarshalYAML round-trips a TenantConfig back to its compact form.
func (t TenantConfig) MarshalYAML() (interface{}, error) {
	if t.Inherited != nil {
		return t.Inherited, nil
	}
	return t.Direct, nil
}

// SoftDeleteConfig describes how a table marks rows deleted instead of
// issuing a DELETE.
type SoftDeleteConfig struct {
	Column       string      `yaml:"column"`
	DeletedValue interface{} `yaml:"deleted_value,omitempty"`
	ActiveValue  interface{} `yaml:"active_value,omitempty"`
}

// ColumnRules carries per-column validation and classification.
type ColumnRules struct {
	Description   string        `yaml:"description,omitempty"`
	TypeRef       string        `yaml:"type,omitempty"`
	Pattern       string        `yaml:"pattern,omitempty"`
	AllowedValues []interface{} `yaml:"allowed_values,omitempty"`
	Tags          []string      `yaml:"tags,omitempty"`
}

// HasTag reports whether the column carries the given classification tag
// (e.g. "pii", "sensitive", "immutable", "auto").
func (c ColumnRules) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LoadRules parses a rules document from a YAML file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docmodel: read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses a rules document from YAML bytes.
func ParseRules(data []byte) (*Rules, error) {
	r := &Rules{Tables: map[string]TableRules{}}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("docmodel: parse rules: %w", err)
	}
	return r, nil
}

// TableRules returns the rules for a table, if any are declared.
func (r *Rules) TableRules(table string) (TableRules, bool) {
	tr, ok := r.Tables[table]
	return tr, ok
}

// IsGlobalTable reports whether a table is shared across all tenants.
func (r *Rules) IsGlobalTable(table string) bool {
	tr, ok := r.Tables[table]
	return ok && tr.Global
}
