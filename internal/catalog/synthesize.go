package catalog

import (
	"fmt"

	"github.com/cori-do/cori-sub001/internal/docmodel"
)

// Row is one synthesized result row, column name to value, produced in
// the column order the view declares.
type Row map[string]interface{}

// Result is a synthesized catalog response: the column names in
// display order (matching the real view's column order, so a client's
// positional SELECT still works) and the rows.
type Result struct {
	Columns []string
	Rows    []Row
}

// Config carries the two opt-in disclosure flags; both default false,
// meaning row counts and index lists are withheld even for accessible
// tables.
type Config struct {
	ExposeRowCounts bool
	ExposeIndexes   bool
}

// Synthesize builds the response for an intercepted view, scoped to
// grant. docs supplies the data types and nullability the schema
// config records. Row counts, when Config.ExposeRowCounts permits them,
// come from the caller via rowCounts; a table missing from rowCounts (or
// a nil map) reads NULL in reltuples. No view reports index data, and
// Config.ExposeIndexes is not consulted.
func Synthesize(view string, grant Grant, docs *docmodel.Documents, cfg Config, rowCounts map[string]int64) (Result, error) {
	switch view {
	case "information_schema.tables":
		return synthesizeTables(grant, docs), nil
	case "information_schema.columns":
		return synthesizeColumns(grant, docs), nil
	case "information_schema.table_constraints":
		return synthesizeTableConstraints(grant, docs), nil
	case "information_schema.key_column_usage":
		return synthesizeKeyColumnUsage(grant, docs), nil
	case "pg_catalog.pg_tables":
		return synthesizePgTables(grant, docs), nil
	case "pg_catalog.pg_class":
		return synthesizePgClass(grant, docs, cfg, rowCounts), nil
	case "pg_catalog.pg_attribute":
		return synthesizePgAttribute(grant, docs), nil
	case "pg_catalog.pg_namespace":
		return synthesizePgNamespace(), nil
	default:
		return Result{}, fmt.Errorf("catalog: unrecognized view %q", view)
	}
}

func synthesizeTables(grant Grant, docs *docmodel.Documents) Result {
	res := Result{Columns: []string{"table_catalog", "table_schema", "table_name", "table_type"}}
	for _, name := range grant.visibleTables() {
		if _, ok := docs.Schema.Table(name); !ok {
			continue
		}
		res.Rows = append(res.Rows, Row{
			"table_catalog": "cori",
			"table_schema":  "public",
			"table_name":    name,
			"table_type":    "BASE TABLE",
		})
	}
	return res
}

func synthesizeColumns(grant Grant, docs *docmodel.Documents) Result {
	res := Result{Columns: []string{"table_schema", "table_name", "column_name", "data_type", "is_nullable"}}
	for _, name := range grant.visibleTables() {
		table, ok := docs.Schema.Table(name)
		if !ok {
			continue
		}
		allColumns := columnNames(table)
		visible := grant.columnsFor(name, allColumns)
		for _, colName := range visible {
			col, ok := table.Column(colName)
			if !ok {
				continue
			}
			nullable := "NO"
			if col.Nullable {
				nullable = "YES"
			}
			res.Rows = append(res.Rows, Row{
				"table_schema": "public",
				"table_name":   name,
				"column_name":  col.Name,
				"data_type":    col.DataType,
				"is_nullable":  nullable,
			})
		}
	}
	return res
}

func synthesizeTableConstraints(grant Grant, docs *docmodel.Documents) Result {
	res := Result{Columns: []string{"table_schema", "table_name", "constraint_name", "constraint_type"}}
	for _, name := range grant.visibleTables() {
		table, ok := docs.Schema.Table(name)
		if !ok || len(table.PrimaryKey) == 0 {
			continue
		}
		res.Rows = append(res.Rows, Row{
			"table_schema":    "public",
			"table_name":      name,
			"constraint_name": fmt.Sprintf("%s_pkey", name),
			"constraint_type": "PRIMARY KEY",
		})
		for _, fk := range table.ForeignKeys {
			res.Rows = append(res.Rows, Row{
				"table_schema":    "public",
				"table_name":      name,
				"constraint_name": fmt.Sprintf("%s_%s_fkey", name, fk.RefTable),
				"constraint_type": "FOREIGN KEY",
			})
		}
	}
	return res
}

func synthesizeKeyColumnUsage(grant Grant, docs *docmodel.Documents) Result {
	res := Result{Columns: []string{"table_schema", "table_name", "column_name", "constraint_name"}}
	for _, name := range grant.visibleTables() {
		table, ok := docs.Schema.Table(name)
		if !ok {
			continue
		}
		for _, col := range table.PrimaryKey {
			res.Rows = append(res.Rows, Row{
				"table_schema":    "public",
				"table_name":      name,
				"column_name":     col,
				"constraint_name": fmt.Sprintf("%s_pkey", name),
			})
		}
	}
	return res
}

func synthesizePgTables(grant Grant, docs *docmodel.Documents) Result {
	res := Result{Columns: []string{"schemaname", "tablename", "tableowner"}}
	for _, name := range grant.visibleTables() {
		if _, ok := docs.Schema.Table(name); !ok {
			continue
		}
		res.Rows = append(res.Rows, Row{
			"schemaname": "public",
			"tablename":  name,
			"tableowner": "cori",
		})
	}
	return res
}

func synthesizePgClass(grant Grant, docs *docmodel.Documents, cfg Config, rowCounts map[string]int64) Result {
	res := Result{Columns: []string{"relname", "relnamespace", "relkind", "reltuples"}}
	for _, name := range grant.visibleTables() {
		if _, ok := docs.Schema.Table(name); !ok {
			continue
		}
		var reltuples interface{} = nil
		if cfg.ExposeRowCounts {
			if n, ok := rowCounts[name]; ok {
				reltuples = n
			}
		}
		res.Rows = append(res.Rows, Row{
			"relname":      name,
			"relnamespace": "public",
			"relkind":      "r",
			"reltuples":    reltuples,
		})
	}
	return res
}

func synthesizePgAttribute(grant Grant, docs *docmodel.Documents) Result {
	res := Result{Columns: []string{"attrelid", "attname", "atttypid", "attnum"}}
	for _, name := range grant.visibleTables() {
		table, ok := docs.Schema.Table(name)
		if !ok {
			continue
		}
		allColumns := columnNames(table)
		visible := grant.columnsFor(name, allColumns)
		for i, colName := range visible {
			res.Rows = append(res.Rows, Row{
				"attrelid": name,
				"attname":  colName,
				"atttypid": 0,
				"attnum":   i + 1,
			})
		}
	}
	return res
}

func synthesizePgNamespace() Result {
	return Result{
		Columns: []string{"nspname"},
		Rows:    []Row{{"nspname": "public"}},
	}
}

func columnNames(table *docmodel.SchemaTable) []string {
	names := make([]string, 0, len(table.Columns))
	for _, c := range table.Columns {
		names = append(names, c.Name)
	}
	return names
}
