package sql

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/syssam/record/dialect"
)

// Transaction state errors.
var (
	// ErrTxStarted is returned when Begin is called while a transaction is open.
	ErrTxStarted = errors.New("dialect/sql: cannot start a transaction within a transaction")
	// ErrNoTx is returned by Commit and Rollback without an open transaction.
	ErrNoTx = errors.New("dialect/sql: no transaction in progress")
)

// Executor is the single point of contact with the live connection. It
// renders statements with a Builder and runs them on the driver, or on the
// open transaction when there is one.
//
// Transactions are single level and session wide. The mutex only guards the
// transaction handle; statements themselves are expected to run one at a time.
type Executor struct {
	drv     dialect.Driver
	builder Builder

	mu sync.Mutex
	tx dialect.Tx
}

// NewExecutor returns an Executor running on drv.
func NewExecutor(drv dialect.Driver) (*Executor, error) {
	b, err := Dialect(drv.Dialect())
	if err != nil {
		return nil, err
	}
	return &Executor{drv: drv, builder: b}, nil
}

// Dialect returns the dialect name.
func (e *Executor) Dialect() string { return e.builder.Name() }

// Builder returns the statement builder of the executor.
func (e *Executor) Builder() Builder { return e.builder }

// Quote quotes an identifier for the executor dialect.
func (e *Executor) Quote(ident string) string { return e.builder.Quote(ident) }

// EqualityClause builds a WHERE clause; see Builder.EqualityClause.
func (e *Executor) EqualityClause(fields []string, values []any) (string, []any, error) {
	return e.builder.EqualityClause(fields, values)
}

// Close closes the underlying driver.
func (e *Executor) Close() error { return e.drv.Close() }

func (e *Executor) conn() dialect.ExecQuerier {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tx != nil {
		return e.tx
	}
	return e.drv
}

func (e *Executor) exec(ctx context.Context, query string, args []any) (Result, error) {
	var res Result
	if args == nil {
		args = []any{}
	}
	if err := e.conn().Exec(ctx, e.builder.Rebind(query), args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Executor) query(ctx context.Context, query string, args []any) ([]dialect.Row, error) {
	if args == nil {
		args = []any{}
	}
	rows := &Rows{}
	if err := e.conn().Query(ctx, e.builder.Rebind(query), args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRows(rows)
}

// Count returns the number of rows of table matching fields and values.
func (e *Executor) Count(ctx context.Context, table string, fields []string, values []any) (int64, error) {
	where, args, err := e.builder.EqualityClause(fields, values)
	if err != nil {
		return 0, err
	}
	if args == nil {
		args = []any{}
	}
	rows := &Rows{}
	if err := e.conn().Query(ctx, e.builder.Rebind(e.builder.Count(table, where)), args, rows); err != nil {
		return 0, fmt.Errorf("dialect/sql: count: %w", err)
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("dialect/sql: count: %w", err)
		}
	}
	return n, rows.Err()
}

// Insert writes row into table. A nil primary key is dropped so storage can
// assign one. It returns the generated key, or nil when nothing was written
// or pk is empty.
func (e *Executor) Insert(ctx context.Context, table string, row dialect.Row, pk string) (any, error) {
	row = row.Clone()
	if v, ok := row[pk]; ok && v == nil {
		delete(row, pk)
	}
	if len(row) == 0 {
		return nil, nil
	}
	columns, args := split(row)
	query := e.builder.Insert(table, columns)
	if e.Dialect() == dialect.Postgres && pk != "" {
		rows, err := e.query(ctx, query+" RETURNING "+e.builder.Quote(pk), args)
		if err != nil {
			return nil, fmt.Errorf("dialect/sql: insert: %w", err)
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("dialect/sql: insert: no key returned for %s", table)
		}
		return rows[0][pk], nil
	}
	res, err := e.exec(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: insert: %w", err)
	}
	if pk == "" {
		return nil, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: insert: last insert id: %w", err)
	}
	return id, nil
}

// Update writes row to the table row identified by row[pk]. It reports
// false without error when the primary key is absent.
func (e *Executor) Update(ctx context.Context, table string, row dialect.Row, pk string) (bool, error) {
	id, ok := row[pk]
	if !ok || id == nil {
		return false, nil
	}
	row = row.Clone()
	delete(row, pk)
	if len(row) == 0 {
		return true, nil
	}
	columns, args := split(row)
	if _, err := e.exec(ctx, e.builder.Update(table, columns, pk), append(args, id)); err != nil {
		return false, fmt.Errorf("dialect/sql: update: %w", err)
	}
	return true, nil
}

// Delete removes the row of table whose pk equals id.
func (e *Executor) Delete(ctx context.Context, table string, id any, pk string) (bool, error) {
	return e.DeleteWhere(ctx, table, []string{pk}, []any{id})
}

// DeleteWhere removes every row of table matching fields and values.
// With no fields every row is removed.
func (e *Executor) DeleteWhere(ctx context.Context, table string, fields []string, values []any) (bool, error) {
	where, args, err := e.builder.EqualityClause(fields, values)
	if err != nil {
		return false, err
	}
	if _, err := e.exec(ctx, e.builder.Delete(table, where), args); err != nil {
		return false, fmt.Errorf("dialect/sql: delete: %w", err)
	}
	return true, nil
}

// SelectAll returns every row of table ordered and paged by opts.
func (e *Executor) SelectAll(ctx context.Context, table string, opts dialect.SelectOptions) ([]dialect.Row, error) {
	rows, err := e.query(ctx, e.builder.Select(table, "", opts), nil)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: select: %w", err)
	}
	return rows, nil
}

// SelectByFields returns the rows of table matching fields and values.
func (e *Executor) SelectByFields(ctx context.Context, table string, fields []string, values []any, opts dialect.SelectOptions) ([]dialect.Row, error) {
	where, args, err := e.builder.EqualityClause(fields, values)
	if err != nil {
		return nil, err
	}
	rows, err := e.query(ctx, e.builder.Select(table, where, opts), args)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: select: %w", err)
	}
	return rows, nil
}

// SelectOneByFields returns the first row of table matching fields and
// values, or nil if there is none.
func (e *Executor) SelectOneByFields(ctx context.Context, table string, fields []string, values []any) (dialect.Row, error) {
	rows, err := e.SelectByFields(ctx, table, fields, values, dialect.SelectOptions{Limit: 1})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// SelectWhere returns the rows of table matching a caller supplied WHERE
// fragment with "?" placeholders, ordered and paged by opts. The fragment
// is not parsed or validated.
func (e *Executor) SelectWhere(ctx context.Context, table, where string, args []any, opts dialect.SelectOptions) ([]dialect.Row, error) {
	rows, err := e.query(ctx, e.builder.Select(table, where, opts), args)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: select: %w", err)
	}
	return rows, nil
}

// SelectByQuery runs a caller supplied statement with "?" placeholders.
// The statement is not parsed or validated.
func (e *Executor) SelectByQuery(ctx context.Context, query string, args []any) ([]dialect.Row, error) {
	rows, err := e.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	return rows, nil
}

// SelectOneByQuery is SelectByQuery returning only the first row, or nil.
func (e *Executor) SelectOneByQuery(ctx context.Context, query string, args []any) (dialect.Row, error) {
	rows, err := e.SelectByQuery(ctx, query, args)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Columns reports the ordered columns of table using an empty result set.
func (e *Executor) Columns(ctx context.Context, table string) ([]dialect.Column, error) {
	rows := &Rows{}
	query := "SELECT * FROM " + e.builder.Quote(table) + " LIMIT 0"
	if err := e.conn().Query(ctx, query, []any{}, rows); err != nil {
		return nil, fmt.Errorf("dialect/sql: columns of %s: %w", table, err)
	}
	defer rows.Close()
	return ScanColumns(rows)
}

// Begin opens the session transaction.
func (e *Executor) Begin(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tx != nil {
		return ErrTxStarted
	}
	tx, err := e.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: begin: %w", err)
	}
	e.tx = tx
	return nil
}

// Commit commits the session transaction.
func (e *Executor) Commit() error {
	tx, err := e.take()
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Rollback rolls back the session transaction.
func (e *Executor) Rollback() error {
	tx, err := e.take()
	if err != nil {
		return err
	}
	return tx.Rollback()
}

// InTransaction reports whether a transaction is open.
func (e *Executor) InTransaction() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tx != nil
}

func (e *Executor) take() (dialect.Tx, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tx == nil {
		return nil, ErrNoTx
	}
	tx := e.tx
	e.tx = nil
	return tx, nil
}

// split returns the sorted columns of row and their values in the same order.
func split(row dialect.Row) ([]string, []any) {
	columns := make([]string, 0, len(row))
	for c := range row {
		columns = append(columns, c)
	}
	slices.Sort(columns)
	args := make([]any, len(columns))
	for i, c := range columns {
		args[i] = row[c]
	}
	return columns, args
}
