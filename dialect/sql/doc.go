// Package sql implements the storage side of the record package on top of
// database/sql.
//
// It is made of three layers:
//
//   - Driver: a dialect.Driver over *sql.DB with transaction support.
//   - Builder: identifier quoting, literal escaping and equality clauses for
//     one dialect. Statements are written with "?" placeholders and rebound
//     to the dialect bind style on execution.
//   - Executor: count, insert, update, delete and select primitives plus a
//     single level session transaction. It is the only type that talks to
//     the connection.
//
// # Dialect Support
//
//	import "github.com/syssam/record/dialect"
//
//	b, _ := sql.Dialect(dialect.MySQL)
//	b.Quote("users")                                    // `users`
//	b.EqualityClause([]string{"a", "b"}, []any{1, nil}) // `a` = ? AND `b` IS NULL
//
//	b, _ = sql.Dialect(dialect.Postgres)
//	b.Quote("users")                                    // users
//
// PostgreSQL inserts append "RETURNING <pk>" to read the generated key;
// MySQL and SQLite read LastInsertId.
//
// # Observability
//
// MeteredDriver times every statement and counts it on a Metrics, labelled
// by SQL verb, and reports statements over the slow threshold. DebugDriver
// logs every statement through zap.
//
//	drv, _ := sql.Open(dialect.Postgres, "postgres", dsn)
//	m, _ := sql.NewMetrics(prometheus.DefaultRegisterer)
//	exec, _ := sql.NewExecutor(sql.NewMeteredDriver(drv, m))
//
// Backend errors can be classified with ClassifyError, which understands
// lib/pq, pgx and go-sql-driver/mysql error types.
package sql
