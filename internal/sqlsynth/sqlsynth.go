// Package sqlsynth turns a validated tool call into the SQL statement
// the Tool Gateway hands to the RLS Injector. It never applies tenant
// scoping itself — that remains the Injector's sole responsibility, per
// the rule that it is the only predicate source reachable from either
// gateway.
package sqlsynth

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/cori-do/cori-sub001/internal/toolgen"
)

// Synthesize builds the SQL text for one tool call against table,
// using args as already validated by the Validator. columns restricts
// a get/list projection to the caller's readable columns; a nil slice
// means "all columns on the table".
func Synthesize(tool toolgen.Tool, table *docmodel.SchemaTable, args map[string]interface{}, columns []string) (string, error) {
	switch tool.Operation {
	case toolgen.OpGet:
		return synthesizeGet(table, args, columns)
	case toolgen.OpList:
		return synthesizeList(table, args, columns)
	case toolgen.OpCreate:
		return synthesizeCreate(table, args)
	case toolgen.OpUpdate:
		return synthesizeUpdate(table, args)
	case toolgen.OpDelete:
		return synthesizeDelete(table, args)
	default:
		return "", fmt.Errorf("sqlsynth: unknown operation %q", tool.Operation)
	}
}

func synthesizeGet(table *docmodel.SchemaTable, args map[string]interface{}, columns []string) (string, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(projection(columns))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(table.Name))
	where, err := pkWhere(table, args)
	if err != nil {
		return "", err
	}
	b.WriteString(" WHERE ")
	b.WriteString(where)
	return b.String(), nil
}

func synthesizeList(table *docmodel.SchemaTable, args map[string]interface{}, columns []string) (string, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(projection(columns))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(table.Name))

	if clauses := filterClauses(table, args); len(clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}
	if v, ok := args["limit"]; ok {
		n, err := asInt(v)
		if err != nil {
			return "", fmt.Errorf("sqlsynth: invalid limit: %w", err)
		}
		fmt.Fprintf(&b, " LIMIT %d", n)
	}
	if v, ok := args["offset"]; ok {
		n, err := asInt(v)
		if err != nil {
			return "", fmt.Errorf("sqlsynth: invalid offset: %w", err)
		}
		fmt.Fprintf(&b, " OFFSET %d", n)
	}
	return b.String(), nil
}

func synthesizeCreate(table *docmodel.SchemaTable, args map[string]interface{}) (string, error) {
	names := sortedKeys(args)
	if len(names) == 0 {
		return "", fmt.Errorf("sqlsynth: create requires at least one column value")
	}
	cols := make([]string, len(names))
	vals := make([]string, len(names))
	for i, name := range names {
		cols[i] = quoteIdent(name)
		vals[i] = literal(args[name])
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		quoteIdent(table.Name), strings.Join(cols, ", "), strings.Join(vals, ", ")), nil
}

func synthesizeUpdate(table *docmodel.SchemaTable, args map[string]interface{}) (string, error) {
	sets := make([]string, 0, len(args))
	for _, name := range sortedKeys(args) {
		if isPK(table, name) {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", quoteIdent(name), literal(args[name])))
	}
	if len(sets) == 0 {
		return "", fmt.Errorf("sqlsynth: update requires at least one non-identifier column")
	}
	where, err := pkWhere(table, args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING *",
		quoteIdent(table.Name), strings.Join(sets, ", "), where), nil
}

func synthesizeDelete(table *docmodel.SchemaTable, args map[string]interface{}) (string, error) {
	where, err := pkWhere(table, args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", quoteIdent(table.Name), where), nil
}

// SynthesizeSoftDelete builds the UPDATE statement a soft-delete
// configuration maps a delete tool call onto, setting the configured
// column to its deleted-state value instead of removing the row.
func SynthesizeSoftDelete(table *docmodel.SchemaTable, args map[string]interface{}, cfg docmodel.SoftDeleteConfig) (string, error) {
	where, err := pkWhere(table, args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s",
		quoteIdent(table.Name), quoteIdent(cfg.Column), literal(cfg.DeletedValue), where), nil
}

func pkWhere(table *docmodel.SchemaTable, args map[string]interface{}) (string, error) {
	if len(table.PrimaryKey) == 0 {
		return "", fmt.Errorf("sqlsynth: table %q has no primary key", table.Name)
	}
	clauses := make([]string, 0, len(table.PrimaryKey))
	for _, pk := range table.PrimaryKey {
		v, ok := args[pk]
		if !ok {
			return "", fmt.Errorf("sqlsynth: missing primary key value for %q", pk)
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", quoteIdent(pk), literal(v)))
	}
	return strings.Join(clauses, " AND "), nil
}

// filterClauses builds WHERE clauses for a list call's column filters.
// Filters are read from a nested "filters" object when present (the
// shape the Tool Generator's list schema emits); absent that, any
// top-level argument naming a real column is treated as a filter, so
// callers that pass flat args (e.g. direct SQL Gateway-style dispatch)
// still work.
func filterClauses(table *docmodel.SchemaTable, args map[string]interface{}) []string {
	source := args
	if nested, ok := args["filters"].(map[string]interface{}); ok {
		source = nested
	}
	var clauses []string
	for _, name := range sortedKeys(source) {
		if name == "limit" || name == "offset" || name == "order_by" || name == "filters" {
			continue
		}
		if _, ok := table.Column(name); !ok {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", quoteIdent(name), literal(source[name])))
	}
	return clauses
}

func isPK(table *docmodel.SchemaTable, name string) bool {
	for _, pk := range table.PrimaryKey {
		if pk == name {
			return true
		}
	}
	return false
}

func projection(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func literal(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	switch t := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case float64, float32, int, int64, int32:
		return fmt.Sprint(t)
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(t), "'", "''") + "'"
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		return strconv.Atoi(t)
	default:
		return 0, fmt.Errorf("value %v is not an integer", v)
	}
}
