package rls

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/cori-do/cori-sub001/internal/sqlparse"
)

// InjectionResult is the outcome of a single Inject call.
type InjectionResult struct {
	OriginalSQL     string
	RewrittenSQL    string
	TablesScoped    []string
	PredicatesAdded []string
}

// Injector rewrites SQL statements to enforce row-level tenant isolation
// by splicing tenant predicates into the statement text. It never
// forwards an un-scoped reference to a tenant-scoped table.
type Injector struct {
	docs     *docmodel.Store
	analyzer *sqlparse.Analyzer
}

// NewInjector constructs an Injector reading tenancy configuration from
// the given document store.
func NewInjector(docs *docmodel.Store) *Injector {
	return &Injector{docs: docs, analyzer: sqlparse.NewAnalyzer()}
}

// Inject rewrites sql so every tenant-scoped user table reference is
// pinned to tenant. sql is expected to be a single statement; the
// gateways are responsible for rejecting multi-statement input before
// calling Inject.
func (inj *Injector) Inject(sql string, tenant string) (InjectionResult, error) {
	result := InjectionResult{OriginalSQL: sql, RewrittenSQL: sql}

	stmts, err := inj.analyzer.Parse(sql)
	if err != nil {
		return InjectionResult{}, newError(KindSqlParseError, "%v", err)
	}
	if len(stmts) == 0 {
		return result, nil
	}
	stmt := stmts[0]

	if stmt.IsDDL {
		return InjectionResult{}, newError(KindDdlNotAllowed, "DDL statements may not be executed through the gateway")
	}

	switch stmt.Op {
	case sqlparse.OpSelect, sqlparse.OpUpdate, sqlparse.OpDelete:
		return inj.injectPredicates(sql, stmt, tenant)
	case sqlparse.OpInsert:
		return inj.injectInsert(sql, stmt, tenant)
	default:
		return result, nil
	}
}

// injectPredicates handles SELECT/UPDATE/DELETE by adding
// "<alias_or_name>.<tenant_column> = '<tenant>'" for every scoped table
// reference, wrapping any existing WHERE predicate in parens.
func (inj *Injector) injectPredicates(sql string, stmt sqlparse.Statement, tenant string) (InjectionResult, error) {
	docs := inj.docs.Snapshot()

	if hasUnprovableSubquery(sql, stmt, docs) {
		return InjectionResult{}, newError(KindSubqueryTenantLeak, "cannot prove tenant scoping inside a nested subquery")
	}

	var predicates []string
	var tablesScoped []string
	for _, ref := range stmt.Tables {
		bare := bareTableName(ref.Name)
		if docmodel.IsSystemCatalogTable(ref.Name) {
			continue
		}
		resolution := docs.ResolveTenant(bare)
		if resolution.Global {
			continue
		}
		ident := ref.Alias
		if ident == "" {
			ident = ref.Name
		}
		if resolution.Inherited != nil {
			predicates = append(predicates, inheritedPredicate(ident, resolution.Inherited, tenant))
		} else {
			predicates = append(predicates, fmt.Sprintf("%s.%s = '%s'", ident, resolution.Column, escapeLiteral(tenant)))
		}
		tablesScoped = append(tablesScoped, ref.Name)
	}

	if len(predicates) == 0 {
		return InjectionResult{OriginalSQL: sql, RewrittenSQL: sql}, nil
	}

	rewritten := spliceWhere(sql, predicates)
	return InjectionResult{
		OriginalSQL:     sql,
		RewrittenSQL:    rewritten,
		TablesScoped:    tablesScoped,
		PredicatesAdded: predicates,
	}, nil
}

// inheritedPredicate builds an EXISTS-joined predicate for a table whose
// tenant identity is inherited through a foreign key to a parent table,
// e.g.:
//
//	EXISTS (SELECT 1 FROM customers WHERE customers.id = orders.customer_id AND customers.tenant_id = 'A')
func inheritedPredicate(ident string, inherited *docmodel.InheritedTenant, tenant string) string {
	return fmt.Sprintf(
		"EXISTS (SELECT 1 FROM %s WHERE %s.id = %s.%s AND %s.tenant_id = '%s')",
		inherited.References, inherited.References, ident, inherited.Via, inherited.References, escapeLiteral(tenant),
	)
}

func bareTableName(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

var (
	orderByRe = regexp.MustCompile(`(?i)\s+order\s+by\s`)
	limitRe   = regexp.MustCompile(`(?i)\s+limit\s`)
	groupByRe = regexp.MustCompile(`(?i)\s+group\s+by\s`)
	havingRe  = regexp.MustCompile(`(?i)\s+having\s`)
	whereRe   = regexp.MustCompile(`(?i)\s+where\s`)
)

// spliceWhere inserts the given predicates into sql, wrapping any
// existing WHERE predicate in parens, or inserting a new WHERE clause
// before the earliest of ORDER BY/LIMIT/GROUP BY/HAVING/";", or at the
// end if none of those appear.
func spliceWhere(sql string, predicates []string) string {
	clause := strings.Join(predicates, " AND ")

	trimmed := strings.TrimRight(sql, " \t\n;")
	trailingSemicolon := len(sql) > 0 && strings.TrimSpace(sql[len(trimmed):]) == ";"

	if loc := whereRe.FindStringIndex(trimmed); loc != nil {
		insertAt := loc[1]
		tailStart := findEarliestKeyword(trimmed[insertAt:])
		existing := trimmed[insertAt:]
		tail := ""
		if tailStart >= 0 {
			existing = trimmed[insertAt : insertAt+tailStart]
			tail = trimmed[insertAt+tailStart:]
		}
		rewritten := trimmed[:insertAt] + "(" + strings.TrimSpace(existing) + ") AND " + clause + tail
		return finish(rewritten, trailingSemicolon)
	}

	insertAt := findEarliestKeyword(trimmed)
	if insertAt < 0 {
		return finish(trimmed+" WHERE "+clause, trailingSemicolon)
	}
	rewritten := trimmed[:insertAt] + " WHERE " + clause + trimmed[insertAt:]
	return finish(rewritten, trailingSemicolon)
}

func finish(sql string, trailingSemicolon bool) string {
	if trailingSemicolon {
		return sql + ";"
	}
	return sql
}

// findEarliestKeyword returns the byte offset of the earliest of
// ORDER BY/LIMIT/GROUP BY/HAVING in s, or -1 if none appear.
func findEarliestKeyword(s string) int {
	best := -1
	for _, re := range []*regexp.Regexp{orderByRe, limitRe, groupByRe, havingRe} {
		if loc := re.FindStringIndex(s); loc != nil {
			if best == -1 || loc[0] < best {
				best = loc[0]
			}
		}
	}
	return best
}
