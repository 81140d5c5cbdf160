package rls

import (
	"strings"

	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/cori-do/cori-sub001/internal/sqlparse"
)

// subqueryMarkers are substrings whose presence indicates the statement
// contains a nested SELECT: a parenthesized SELECT anywhere in FROM,
// WHERE, or the target list. The flat TableRef list the Analyzer
// produces does not retain nesting depth, so Inject cannot distinguish
// "table referenced at top level" from "table referenced only inside a
// subquery" — which is exactly the ambiguity that makes safe injection
// into a nested subquery unprovable from the table list alone.
var subqueryMarkers = []string{"(select", "( select"}

// hasUnprovableSubquery reports whether stmt contains a nested subquery
// that also reaches a tenant-scoped user table. When both conditions
// hold, Inject cannot guarantee the predicates it splices into the
// outer statement's WHERE clause actually constrain the subquery's own
// table references, so the caller must reject rather than risk
// producing SQL that looks scoped but leaks rows through the nested
// query. A statement with no subquery, or one whose every table is
// global or system catalog, is always provable.
func hasUnprovableSubquery(sql string, stmt sqlparse.Statement, docs *docmodel.Documents) bool {
	lower := strings.ToLower(sql)
	hasSubquery := false
	for _, marker := range subqueryMarkers {
		if strings.Contains(lower, marker) {
			hasSubquery = true
			break
		}
	}
	if !hasSubquery {
		return false
	}

	for _, ref := range stmt.Tables {
		if docmodel.IsSystemCatalogTable(ref.Name) {
			continue
		}
		resolution := docs.ResolveTenant(bareTableName(ref.Name))
		if !resolution.Global {
			return true
		}
	}
	return false
}
