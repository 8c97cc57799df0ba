package dialect

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
)

// Dialect names.
const (
	MySQL    = "mysql"
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// ErrUnsupported is returned for a dialect name outside MySQL, Postgres and SQLite.
var ErrUnsupported = errors.New("dialect: unsupported dialect")

// Validate returns ErrUnsupported if name is not a known dialect.
func Validate(name string) error {
	switch name {
	case MySQL, Postgres, SQLite:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupported, name)
}

// ExecQuerier wraps the two database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for the statement executor.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	driver.Tx
}

// Row is a single result row keyed by column name.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Column describes one column of a table as reported by the schema provider.
type Column struct {
	Name string `yaml:"name"`
	// Type is the native type tag reported by the backend (e.g. VARCHAR, INT4).
	Type string `yaml:"type"`
}

// SelectOptions controls ordering and paging of multi-row selects.
type SelectOptions struct {
	// SortField is the column to order by. Empty means no ORDER BY.
	SortField string
	// Descending flips the order direction.
	Descending bool
	// Limit caps the number of rows. Zero or negative means no limit.
	Limit int
	// Offset skips rows. Only emitted together with Limit.
	Offset int
}
