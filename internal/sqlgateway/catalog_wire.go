package sqlgateway

import (
	"fmt"
	"sort"

	"github.com/cori-do/cori-sub001/internal/catalog"
	"github.com/jackc/pgx/v5/pgproto3"
)

// catalogRowDescription builds a RowDescription message for a
// synthesized catalog result, using text format for every column (the
// gateway never claims binary-format support for virtualized rows).
func catalogRowDescription(result catalog.Result) *pgproto3.RowDescription {
	fields := make([]pgproto3.FieldDescription, 0, len(result.Columns))
	for _, name := range result.Columns {
		fields = append(fields, pgproto3.FieldDescription{
			Name:                 []byte(name),
			TableOID:             0,
			TableAttributeNumber: 0,
			DataTypeOID:          25, // text
			DataTypeSize:         -1,
			TypeModifier:         -1,
			Format:               0,
		})
	}
	return &pgproto3.RowDescription{Fields: fields}
}

// catalogDataRows renders each synthesized row as a DataRow message, in
// the same column order as catalogRowDescription. Rows are sorted by
// their first column for deterministic test and client output; the
// synthesized catalog carries no inherent ordering guarantee otherwise.
func catalogDataRows(result catalog.Result) []*pgproto3.DataRow {
	sorted := make([]catalog.Row, len(result.Rows))
	copy(sorted, result.Rows)
	if len(result.Columns) > 0 {
		key := result.Columns[0]
		sort.Slice(sorted, func(i, j int) bool {
			return fmt.Sprint(sorted[i][key]) < fmt.Sprint(sorted[j][key])
		})
	}

	rows := make([]*pgproto3.DataRow, 0, len(sorted))
	for _, row := range sorted {
		values := make([][]byte, len(result.Columns))
		for i, col := range result.Columns {
			v, ok := row[col]
			if !ok || v == nil {
				values[i] = nil
				continue
			}
			values[i] = []byte(fmt.Sprint(v))
		}
		rows = append(rows, &pgproto3.DataRow{Values: values})
	}
	return rows
}

func commandComplete(rowCount int) *pgproto3.CommandComplete {
	return &pgproto3.CommandComplete{CommandTag: []byte(fmt.Sprintf("SELECT %d", rowCount))}
}
