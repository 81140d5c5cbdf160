package catalog

import (
	"strings"

	"github.com/cori-do/cori-sub001/internal/sqlparse"
)

// systemViews are the introspection views the Virtual Catalog
// recognizes and synthesizes. A statement that references only other
// system-catalog objects is not intercepted: the RLS Injector skips
// system tables, so the gateway forwards such a statement upstream
// unchanged.
var systemViews = map[string]bool{
	"information_schema.tables":               true,
	"information_schema.columns":              true,
	"information_schema.table_constraints":    true,
	"information_schema.key_column_usage":     true,
	"pg_catalog.pg_tables":                    true,
	"pg_catalog.pg_class":                     true,
	"pg_catalog.pg_attribute":                 true,
	"pg_catalog.pg_namespace":                 true,
}

// normalizeView normalizes a table reference's name to its canonical
// "schema.view" form for lookup in systemViews, defaulting unqualified
// pg_ names to pg_catalog (matching PostgreSQL's default search_path
// behavior for catalog objects).
func normalizeView(name string) string {
	lower := strings.ToLower(name)
	if strings.Contains(lower, ".") {
		return lower
	}
	if strings.HasPrefix(lower, "pg_") {
		return "pg_catalog." + lower
	}
	return lower
}

// IsSchemaQuery classifies a parsed statement as a schema query: one
// whose primary output is read from a recognized introspection view.
// A query that also touches user tables alongside a system view is
// still treated as a schema query (the spec in this case requires
// synthesizing the catalog response and not forwarding the statement;
// any joined user-table references are simply absent from the
// synthesized result, since it is not meaningful to join user data with
// a virtualized catalog view).
func IsSchemaQuery(stmt sqlparse.Statement) (view string, ok bool) {
	for _, ref := range stmt.Tables {
		norm := normalizeView(ref.Name)
		if systemViews[norm] {
			return norm, true
		}
	}
	return "", false
}
