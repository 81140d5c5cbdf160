// Package catalog implements the Virtual Catalog: intercepting
// introspection queries against information_schema and pg_catalog and
// synthesizing a session-scoped view instead of forwarding them
// upstream, so a caller can never discover tables outside its grant.
package catalog

// Grant is the session's view of what it may see: the tables its role
// permits (independent of tenant scoping, which never applies to
// catalog metadata) plus any tables configured as always visible
// regardless of role.
type Grant struct {
	AccessibleTables []string
	ReadableColumns  map[string][]string
	AlwaysVisible    []string
}

// visibleTables returns the deduplicated union of AccessibleTables and
// AlwaysVisible, in a stable order (AlwaysVisible first, matching the
// order config declares global lookup tables).
func (g Grant) visibleTables() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range g.AlwaysVisible {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range g.AccessibleTables {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// columnsFor returns the columns visible for table under this grant.
// Always-visible tables expose every schema column; role-scoped tables
// are limited to ReadableColumns.
func (g Grant) columnsFor(table string, allColumns []string) []string {
	for _, av := range g.AlwaysVisible {
		if av == table {
			return allColumns
		}
	}
	if cols, ok := g.ReadableColumns[table]; ok {
		return cols
	}
	return allColumns
}
