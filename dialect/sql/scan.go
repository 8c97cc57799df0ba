package sql

import (
	"github.com/jmoiron/sqlx"

	"github.com/syssam/record/dialect"
)

// ScanRows reads every remaining row of rows into a dialect.Row.
// Byte slices are converted to strings so text columns read the
// same across drivers.
func ScanRows(rows ColumnScanner) ([]dialect.Row, error) {
	var out []dialect.Row
	for rows.Next() {
		m := make(map[string]any)
		if err := sqlx.MapScan(rows, m); err != nil {
			return nil, err
		}
		out = append(out, normalize(m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func normalize(m map[string]any) dialect.Row {
	row := make(dialect.Row, len(m))
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row[k] = v
	}
	return row
}

// ScanColumns reports the column names and native type tags of rows.
func ScanColumns(rows ColumnScanner) ([]dialect.Column, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	cols := make([]dialect.Column, len(names))
	for i, n := range names {
		cols[i].Name = n
	}
	// Not every driver reports type metadata; names alone satisfy the contract.
	if types, err := rows.ColumnTypes(); err == nil && len(types) == len(cols) {
		for i, t := range types {
			cols[i].Type = t.DatabaseTypeName()
		}
	}
	return cols, nil
}
