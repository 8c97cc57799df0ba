// Package dialect provides the database dialect abstraction for record.
//
// This package defines the interfaces and small value types shared by the
// SQL layer and the record core, allowing record to run against MySQL,
// PostgreSQL and SQLite through one narrow contract.
//
// # Supported Dialects
//
//   - MySQL: backtick identifier quoting, LAST_INSERT_ID key retrieval
//   - Postgres: no identifier quoting, INSERT ... RETURNING key retrieval
//   - SQLite: double-quote identifier quoting, last_insert_rowid key retrieval
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction Interface
//
// The Tx interface extends ExecQuerier with transaction methods:
//
//	type Tx interface {
//	    ExecQuerier
//	    Commit() error
//	    Rollback() error
//	}
//
// # Usage
//
//	drv, err := sql.Open(dialect.Postgres, "postgres", "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	exec, err := sql.NewExecutor(drv)
//	...
//	client, err := record.NewClient(exec)
package dialect
