package docmodel

import "strings"

// Documents is the fully-loaded, immutable set of the five configuration
// documents. A Documents value is never mutated after construction; hot
// reload publishes a new Documents value rather than editing this one
// (see Store in store.go).
type Documents struct {
	Schema *Schema
	Rules  *Rules
	Roles  map[string]*Role
	Types  *Types
	Groups *Groups
}

// Role looks up a loaded role definition by name.
func (d *Documents) Role(name string) (*Role, bool) {
	r, ok := d.Roles[name]
	return r, ok
}

// AlwaysVisibleTables returns the tables the rules document marks visible
// to every role's Virtual Catalog regardless of grant, e.g. shared lookup
// tables. Returns nil if no rules document is loaded.
func (d *Documents) AlwaysVisibleTables() []string {
	if d.Rules == nil {
		return nil
	}
	return d.Rules.AlwaysVisible
}

// TenantResolution is the outcome of resolving a table's tenant scoping
// strategy against the rules document.
type TenantResolution struct {
	Global    bool
	Column    string
	Inherited *InheritedTenant
}

// ResolveTenant determines how a table is tenant-scoped: globally shared,
// directly via a column, or inherited through a foreign key. A table with
// no rules entry is treated as tenant-scoped via the conventional
// "tenant_id" column, matching the reference implementation's default.
func (d *Documents) ResolveTenant(table string) TenantResolution {
	if d.Rules == nil {
		return TenantResolution{Column: "tenant_id"}
	}
	tr, ok := d.Rules.Tables[table]
	if !ok {
		return TenantResolution{Column: "tenant_id"}
	}
	if tr.Global {
		return TenantResolution{Global: true}
	}
	if tr.Tenant == nil {
		return TenantResolution{Column: "tenant_id"}
	}
	if tr.Tenant.Inherited != nil {
		return TenantResolution{Inherited: tr.Tenant.Inherited}
	}
	return TenantResolution{Column: tr.Tenant.Direct}
}

// systemCatalogPrefixes are the schema-qualified prefixes that mark a
// table as belonging to PostgreSQL's system catalog rather than user
// data; such tables are never tenant-scoped or forwarded to the Virtual
// Catalog's bypass path.
var systemCatalogPrefixes = []string{"pg_catalog.", "information_schema."}

// IsSystemCatalogTable reports whether a (possibly schema-qualified)
// table reference names a PostgreSQL system catalog object: anything
// under pg_catalog. or information_schema., or an unqualified name
// beginning with "pg_".
func IsSystemCatalogTable(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range systemCatalogPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	bare := lower
	if idx := strings.LastIndex(bare, "."); idx >= 0 {
		bare = bare[idx+1:]
	}
	return strings.HasPrefix(bare, "pg_")
}

// SoftDelete returns the soft-delete configuration for a table, if any.
func (d *Documents) SoftDelete(table string) (SoftDeleteConfig, bool) {
	if d.Rules == nil {
		return SoftDeleteConfig{}, false
	}
	tr, ok := d.Rules.Tables[table]
	if !ok || tr.SoftDelete == nil {
		return SoftDeleteConfig{}, false
	}
	return *tr.SoftDelete, true
}

// ColumnRules returns the validation rules for a single column, if any.
func (d *Documents) ColumnRules(table, column string) (ColumnRules, bool) {
	if d.Rules == nil {
		return ColumnRules{}, false
	}
	tr, ok := d.Rules.Tables[table]
	if !ok {
		return ColumnRules{}, false
	}
	cr, ok := tr.Columns[column]
	return cr, ok
}

// ResolvePattern returns the effective validation pattern for a column:
// an inline pattern overrides the named type's pattern.
func (d *Documents) ResolvePattern(rules ColumnRules) string {
	if rules.Pattern != "" {
		return rules.Pattern
	}
	if rules.TypeRef != "" && d.Types != nil {
		if def, ok := d.Types.Resolve(rules.TypeRef); ok {
			return def.Pattern
		}
	}
	return ""
}
