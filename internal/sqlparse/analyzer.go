// Package sqlparse implements the SQL Analyzer: PostgreSQL-dialect
// parsing of incoming statements into a statement-kind classification
// and a flat list of referenced tables, for consumption by the RLS
// Injector and the Virtual Catalog.
package sqlparse

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v5"
)

// Operation is the statement-level kind the gateway dispatches on.
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpDdl    Operation = "ddl"
	OpOther  Operation = "other"
)

// TableRef is one table reference surfaced from a statement: its
// (possibly schema-qualified) name, its alias if any, and the
// operation of the statement it was found in.
type TableRef struct {
	Name  string
	Alias string
	Op    Operation
}

// Statement is one parsed SQL statement.
type Statement struct {
	Raw    string
	Op     Operation
	Tables []TableRef
	IsDDL  bool
}

// Analyzer parses SQL text using the PostgreSQL dialect (via pg_query's
// bindings to the real Postgres parser, so grammar edge cases match the
// upstream server exactly).
type Analyzer struct{}

// NewAnalyzer constructs an Analyzer. It holds no state.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Parse splits sql into its constituent statements and classifies each.
// Multi-statement strings produce multiple items; the Analyzer's
// contract is purely descriptive and it rejects nothing itself. The SQL
// Gateway refuses any input holding more than one statement, so none of
// them runs, not even the first.
func (a *Analyzer) Parse(sql string) ([]Statement, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return nil, nil
	}

	result, err := pg_query.Parse(sql)
	if err != nil {
		return nil, &Error{Kind: KindSqlParseError, Message: err.Error()}
	}

	stmts := make([]Statement, 0, len(result.Stmts))
	for _, raw := range result.Stmts {
		if raw == nil || raw.Stmt == nil {
			continue
		}
		stmts = append(stmts, classify(raw.Stmt))
	}
	return stmts, nil
}

// IsDDL reports whether stmt is a data-definition statement (CREATE/ALTER/DROP/TRUNCATE, including CREATE INDEX and
// CREATE VIEW).
func (a *Analyzer) IsDDL(stmt Statement) bool {
	return stmt.IsDDL
}

func classify(node *pg_query.Node) Statement {
	op, isDDL := operationOf(node)
	stmt := Statement{Op: op, IsDDL: isDDL}
	if isDDL {
		return stmt
	}
	stmt.Tables = tableRefsOf(node, op)
	return stmt
}

func operationOf(node *pg_query.Node) (Operation, bool) {
	switch node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		return OpSelect, false
	case *pg_query.Node_InsertStmt:
		return OpInsert, false
	case *pg_query.Node_UpdateStmt:
		return OpUpdate, false
	case *pg_query.Node_DeleteStmt:
		return OpDelete, false
	case *pg_query.Node_CreateStmt,
		*pg_query.Node_AlterTableStmt,
		*pg_query.Node_DropStmt,
		*pg_query.Node_TruncateStmt,
		*pg_query.Node_IndexStmt,
		*pg_query.Node_ViewStmt,
		*pg_query.Node_CreateTableAsStmt,
		*pg_query.Node_CreateSchemaStmt,
		*pg_query.Node_CommentStmt:
		return OpDdl, true
	default:
		return OpOther, false
	}
}

// tableRefsOf finds every table reference anywhere in the statement's
// tree — top-level relation, joins, CTEs, and nested subqueries in
// WHERE/FROM/SELECT alike — and stamps each with the statement's
// overall operation, matching the reference analyzer's behavior of
// classifying by statement kind rather than per-reference role.
func tableRefsOf(node *pg_query.Node, op Operation) []TableRef {
	var rangeVars []*pg_query.RangeVar
	walkForRangeVars(node, &rangeVars)

	refs := make([]TableRef, 0, len(rangeVars))
	seen := map[string]bool{}
	for _, rv := range rangeVars {
		ref := tableRefFromRangeVar(rv, op)
		key := ref.Name + "\x00" + ref.Alias
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, ref)
	}
	return refs
}

func tableRefFromRangeVar(rv *pg_query.RangeVar, op Operation) TableRef {
	name := rv.Relname
	if rv.Schemaname != "" {
		name = fmt.Sprintf("%s.%s", rv.Schemaname, rv.Relname)
	}
	alias := ""
	if rv.Alias != nil {
		alias = rv.Alias.Aliasname
	}
	return TableRef{Name: name, Alias: alias, Op: op}
}
