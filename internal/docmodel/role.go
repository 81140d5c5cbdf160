package docmodel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Role is a named permission set: for each table it touches, the
// operations (readable/creatable/updatable/deletable) a session holding
// this role may perform.
type Role struct {
	Version      string                       `yaml:"version"`
	Name         string                       `yaml:"name"`
	Tables       map[string]TablePermissions  `yaml:"tables"`
	BlockedTables []string                    `yaml:"blocked_tables,omitempty"`
}

// TablePermissions is the heart of the role model: what a role may read,
// create, update, and delete on one table.
type TablePermissions struct {
	Readable  *ReadableSpec  `yaml:"readable,omitempty"`
	Creatable *CreatableSpec `yaml:"creatable,omitempty"`
	Updatable *UpdatableSpec `yaml:"updatable,omitempty"`
	Deletable *DeletableSpec `yaml:"deletable,omitempty"`
}

// IsBlocked reports whether the role explicitly blocks a table even if a
// permission entry exists for it (defense in depth).
func (r *Role) IsBlocked(table string) bool {
	for _, t := range r.BlockedTables {
		if t == table {
			return true
		}
	}
	return false
}

// ReadableSpec is either "all columns" (optionally capped by
// max_per_page for list operations) or an explicit column enumeration.
// MaxPerPage is a pointer so an explicit "max_per_page: 0" (reject every
// list call) is distinguishable from no limit being configured at all.
type ReadableSpec struct {
	All        bool
	MaxPerPage *int
	Columns    []string
}

// Empty reports whether no columns are readable at all.
func (r *ReadableSpec) Empty() bool {
	return r == nil || (!r.All && len(r.Columns) == 0)
}

// Allows reports whether the given column may be read.
func (r *ReadableSpec) Allows(column string) bool {
	if r == nil {
		return false
	}
	if r.All {
		return true
	}
	for _, c := range r.Columns {
		if c == column {
			return true
		}
	}
	return false
}

func (r *ReadableSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "all" {
			r.All = true
			return nil
		}
		return fmt.Errorf("readable: unexpected scalar %q", node.Value)
	case yaml.SequenceNode:
		var cols []string
		if err := node.Decode(&cols); err != nil {
			return err
		}
		r.Columns = cols
		return nil
	case yaml.MappingNode:
		var m struct {
			All        bool     `yaml:"all"`
			MaxPerPage *int     `yaml:"max_per_page"`
			Columns    []string `yaml:"columns"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		r.All = m.All || len(m.Columns) == 0
		r.MaxPerPage = m.MaxPerPage
		r.Columns = m.Columns
		return nil
	}
	return fmt.Errorf("readable: unsupported node kind %v", node.Kind)
}

// CreatableSpec is either disabled (None), wide open (All), or an
// explicit per-column rule map.
type CreatableSpec struct {
	None    bool
	All     bool
	Columns map[string]ColumnCreateRule
}

// ColumnCreateRule constrains a single column on create.
type ColumnCreateRule struct {
	Required         bool          `yaml:"required,omitempty"`
	Default          interface{}   `yaml:"default,omitempty"`
	RestrictTo       []interface{} `yaml:"restrict_to,omitempty"`
	RequiresApproval bool          `yaml:"requires_approval,omitempty"`
	Guidance         string        `yaml:"guidance,omitempty"`
}

// Empty reports whether creation is disabled.
func (c *CreatableSpec) Empty() bool {
	return c == nil || c.None || (len(c.Columns) == 0 && !c.All)
}

func (c *CreatableSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		switch node.Value {
		case "none":
			c.None = true
			return nil
		case "all":
			c.All = true
			return nil
		}
		return fmt.Errorf("creatable: unexpected scalar %q", node.Value)
	}
	var cols map[string]ColumnCreateRule
	if err := node.Decode(&cols); err != nil {
		return err
	}
	c.Columns = cols
	return nil
}

// UpdatableSpec mirrors CreatableSpec but with richer per-column
// constraints (restrict_to, transitions, only_when, increment/append
// only).
type UpdatableSpec struct {
	None    bool
	Columns map[string]ColumnUpdateRule
}

// ColumnUpdateRule constrains a single column on update.
type ColumnUpdateRule struct {
	RestrictTo       []interface{} `yaml:"restrict_to,omitempty"`
	Transitions      []Transition  `yaml:"transitions,omitempty"`
	OnlyWhen         string        `yaml:"only_when,omitempty"`
	IncrementOnly    bool          `yaml:"increment_only,omitempty"`
	AppendOnly       bool          `yaml:"append_only,omitempty"`
	RequiresApproval bool          `yaml:"requires_approval,omitempty"`
}

// Transition is one allowed "from -> to" edge in a state-machine column.
type Transition struct {
	From string
	To   string
}

func (t *Transition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		from, to, ok := splitArrow(node.Value)
		if !ok {
			return fmt.Errorf("transition: expected \"from->to\", got %q", node.Value)
		}
		t.From, t.To = from, to
		return nil
	}
	var m struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	}
	if err := node.Decode(&m); err != nil {
		return err
	}
	t.From, t.To = m.From, m.To
	return nil
}

func splitArrow(s string) (from, to string, ok bool) {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '-' && s[i+1] == '>' {
			return trimSpace(s[:i]), trimSpace(s[i+2:]), true
		}
	}
	return "", "", false
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}

func (u *UpdatableSpec) Empty() bool {
	return u == nil || u.None || len(u.Columns) == 0
}

func (u *UpdatableSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Value == "none" {
		u.None = true
		return nil
	}
	var cols map[string]ColumnUpdateRule
	if err := node.Decode(&cols); err != nil {
		return err
	}
	u.Columns = cols
	return nil
}

// DeletableSpec controls whether delete is allowed and under what
// conditions.
type DeletableSpec struct {
	Allowed          bool
	RequiresApproval bool
	SoftDelete       bool
}

// IsAllowed reports whether delete is permitted at all.
func (d *DeletableSpec) IsAllowed() bool {
	return d != nil && d.Allowed
}

func (d *DeletableSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		d.Allowed = b
		return nil
	}
	var m struct {
		RequiresApproval bool `yaml:"requires_approval"`
		SoftDelete       bool `yaml:"soft_delete"`
	}
	if err := node.Decode(&m); err != nil {
		return err
	}
	d.Allowed = true
	d.RequiresApproval = m.RequiresApproval
	d.SoftDelete = m.SoftDelete
	return nil
}

// LoadRole parses a role document from a YAML file.
func LoadRole(path string) (*Role, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docmodel: read role: %w", err)
	}
	return ParseRole(data)
}

// ParseRole parses a role document from YAML bytes.
func ParseRole(data []byte) (*Role, error) {
	r := &Role{Tables: map[string]TablePermissions{}}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("docmodel: parse role: %w", err)
	}
	return r, nil
}
