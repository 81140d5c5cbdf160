package rls

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/cori-do/cori-sub001/internal/sqlparse"
)

// insertRe captures an INSERT INTO target's column list and its first
// VALUES tuple:
//
//	group 1: table name (optionally schema-qualified)
//	group 2: column list, as written between the parens after the table name
//	group 3: the first VALUES tuple's contents, between its parens
//
// Only the first VALUES tuple is handled; injectInsert rejects a
// multi-row INSERT rather than scope its first tuple alone.
var insertRe = regexp.MustCompile(`(?is)^\s*insert\s+into\s+([a-z0-9_."]+)\s*\(([^)]*)\)\s*values\s*\(([^)]*)\)`)

// injectInsert handles INSERT by adding the tenant column and literal
// to the column/value list when absent, or verifying the caller's
// supplied value already matches tenant when present. A caller-supplied
// value that conflicts with the session's tenant is a hard rejection:
// Cori never silently rewrites a value the caller explicitly chose.
func (inj *Injector) injectInsert(sql string, stmt sqlparse.Statement, tenant string) (InjectionResult, error) {
	docs := inj.docs.Snapshot()

	if len(stmt.Tables) == 0 {
		return InjectionResult{OriginalSQL: sql, RewrittenSQL: sql}, nil
	}
	target := stmt.Tables[0]
	bare := bareTableName(target.Name)

	if docmodel.IsSystemCatalogTable(target.Name) {
		return InjectionResult{OriginalSQL: sql, RewrittenSQL: sql}, nil
	}
	resolution := docs.ResolveTenant(bare)
	if resolution.Global {
		return InjectionResult{OriginalSQL: sql, RewrittenSQL: sql}, nil
	}
	if resolution.Inherited != nil {
		// Inherited tenancy has no column of its own to inject into an
		// INSERT's column list; the parent row's existence is what
		// establishes tenancy, so there is nothing to splice here.
		return InjectionResult{OriginalSQL: sql, RewrittenSQL: sql, TablesScoped: []string{target.Name}}, nil
	}

	loc := insertRe.FindStringSubmatchIndex(sql)
	if loc == nil {
		// Column list or VALUES tuple could not be matched (e.g. an
		// INSERT ... SELECT, or a bare INSERT INTO t VALUES (...) with
		// no column list); conservatively refuse rather than guess at
		// positional column ordering.
		return InjectionResult{}, newError(KindTenantMismatch, "cannot determine column positions for tenant injection on %q", target.Name)
	}

	if strings.HasPrefix(strings.TrimSpace(sql[loc[1]:]), ",") {
		return InjectionResult{}, newError(KindTenantMismatch, "multi-row INSERT into %q cannot be tenant-scoped", target.Name)
	}

	columnsRaw := sql[loc[4]:loc[5]]
	valuesRaw := sql[loc[6]:loc[7]]
	columns := splitCSV(columnsRaw)
	values := splitCSV(valuesRaw)

	tenantIdx := -1
	for i, c := range columns {
		if strings.EqualFold(strings.TrimSpace(c), resolution.Column) {
			tenantIdx = i
			break
		}
	}

	if tenantIdx >= 0 {
		supplied := strings.TrimSpace(values[tenantIdx])
		expected := fmt.Sprintf("'%s'", escapeLiteral(tenant))
		if !strings.EqualFold(supplied, expected) && supplied != expected {
			return InjectionResult{}, newError(KindTenantMismatch,
				"insert supplies %s=%s which conflicts with session tenant %q", resolution.Column, supplied, tenant)
		}
		return InjectionResult{OriginalSQL: sql, RewrittenSQL: sql, TablesScoped: []string{target.Name}}, nil
	}

	newColumns := columnsRaw + ", " + resolution.Column
	newValues := valuesRaw + ", '" + escapeLiteral(tenant) + "'"
	rewritten := sql[:loc[4]] + newColumns + sql[loc[5]:loc[6]] + newValues + sql[loc[7]:]

	return InjectionResult{
		OriginalSQL:     sql,
		RewrittenSQL:    rewritten,
		TablesScoped:    []string{target.Name},
		PredicatesAdded: []string{fmt.Sprintf("%s = '%s'", resolution.Column, escapeLiteral(tenant))},
	}, nil
}

// splitCSV splits a comma-separated list, respecting neither quoting nor
// nested parens beyond what the caller has already isolated via
// insertRe's non-greedy group matches; callers only use it on the
// contents already extracted from a single column list or value tuple.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
