package record

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/syssam/record/dialect"
)

// Executor is the storage boundary of the client. *sql.Executor from
// package dialect/sql implements it.
type Executor interface {
	Dialect() string
	Quote(ident string) string
	EqualityClause(fields []string, values []any) (string, []any, error)

	Count(ctx context.Context, table string, fields []string, values []any) (int64, error)
	Insert(ctx context.Context, table string, row dialect.Row, pk string) (any, error)
	Update(ctx context.Context, table string, row dialect.Row, pk string) (bool, error)
	Delete(ctx context.Context, table string, id any, pk string) (bool, error)
	DeleteWhere(ctx context.Context, table string, fields []string, values []any) (bool, error)

	SelectAll(ctx context.Context, table string, opts dialect.SelectOptions) ([]dialect.Row, error)
	SelectByFields(ctx context.Context, table string, fields []string, values []any, opts dialect.SelectOptions) ([]dialect.Row, error)
	SelectOneByFields(ctx context.Context, table string, fields []string, values []any) (dialect.Row, error)
	SelectWhere(ctx context.Context, table, where string, args []any, opts dialect.SelectOptions) ([]dialect.Row, error)
	SelectByQuery(ctx context.Context, query string, args []any) ([]dialect.Row, error)
	SelectOneByQuery(ctx context.Context, query string, args []any) (dialect.Row, error)

	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	InTransaction() bool
}

// SchemaProvider reports the ordered columns of a table.
type SchemaProvider interface {
	Columns(ctx context.Context, table string) ([]dialect.Column, error)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger of the client. The default discards everything.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithSchemaProvider overrides the schema provider. By default the
// executor is used when it implements SchemaProvider.
func WithSchemaProvider(p SchemaProvider) Option {
	return func(c *Client) {
		c.schema = p
	}
}

// Client binds record types to one storage connection. It owns the schema
// cache and the pivot type memo, and is safe for concurrent use.
type Client struct {
	exec   Executor
	schema SchemaProvider
	log    *zap.SugaredLogger

	group   singleflight.Group
	mu      sync.RWMutex
	columns map[string][]dialect.Column
	pivots  map[pivotKey]*Type
}

// NewClient returns a client running on exec.
func NewClient(exec Executor, opts ...Option) (*Client, error) {
	if exec == nil {
		return nil, NewConfigurationError(ErrNoConnection, "nil executor")
	}
	if err := dialect.Validate(exec.Dialect()); err != nil {
		return nil, NewConfigurationError(ErrUnsupportedDialect, "%q", exec.Dialect())
	}
	c := &Client{
		exec:    exec,
		log:     zap.NewNop().Sugar(),
		columns: make(map[string][]dialect.Column),
		pivots:  make(map[pivotKey]*Type),
	}
	if p, ok := exec.(SchemaProvider); ok {
		c.schema = p
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the finder and constructor entry point of t.
func (c *Client) Model(t *Type) *Model {
	return &Model{client: c, typ: t}
}

// Dialect returns the dialect name of the underlying executor.
func (c *Client) Dialect() string { return c.exec.Dialect() }

// Logger returns the client logger.
func (c *Client) Logger() *zap.SugaredLogger { return c.log }

// Close closes the executor when it supports closing.
func (c *Client) Close() error {
	if cl, ok := c.exec.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// Schema returns the columns of t. Declared columns are returned as is;
// otherwise the schema provider is asked once per table and the answer is
// cached for the lifetime of the client.
func (c *Client) Schema(ctx context.Context, t *Type) ([]dialect.Column, error) {
	if len(t.columns) > 0 {
		cols := make([]dialect.Column, len(t.columns))
		for i, name := range t.columns {
			cols[i] = dialect.Column{Name: name}
		}
		return cols, nil
	}
	c.mu.RLock()
	cols, ok := c.columns[t.table]
	c.mu.RUnlock()
	if ok {
		return slices.Clone(cols), nil
	}
	if c.schema == nil {
		return nil, NewConfigurationError(ErrNoConnection, "no schema provider for table %s", t.table)
	}
	v, err, _ := c.group.Do(t.table, func() (any, error) {
		cols, err := c.schema.Columns(ctx, t.table)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.columns[t.table] = cols
		c.mu.Unlock()
		c.log.Debugw("schema loaded", "table", t.table, "columns", len(cols))
		return cols, nil
	})
	if err != nil {
		return nil, NewQueryError(t.table, "schema", err)
	}
	return slices.Clone(v.([]dialect.Column)), nil
}

// Begin opens the session transaction. A second Begin returns ErrTxStarted.
func (c *Client) Begin(ctx context.Context) error { return c.exec.Begin(ctx) }

// Commit commits the session transaction.
func (c *Client) Commit() error { return c.exec.Commit() }

// Rollback rolls back the session transaction.
func (c *Client) Rollback() error { return c.exec.Rollback() }

// InTransaction reports whether a transaction is open.
func (c *Client) InTransaction() bool { return c.exec.InTransaction() }

// Transaction runs fn inside a transaction. The transaction is committed
// when fn returns nil and rolled back when it returns an error or panics.
func (c *Client) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	log := c.log.With("tx", uuid.NewString())
	if err := c.exec.Begin(ctx); err != nil {
		return err
	}
	log.Debugw("transaction started")
	defer func() {
		if v := recover(); v != nil {
			if rerr := c.exec.Rollback(); rerr != nil {
				log.Errorw("rollback after panic failed", "error", rerr)
			}
			panic(v)
		}
	}()
	if err := fn(ctx); err != nil {
		if rerr := c.exec.Rollback(); rerr != nil {
			return fmt.Errorf("%w: %w", err, &RollbackError{Err: rerr})
		}
		log.Debugw("transaction rolled back", "error", err)
		return err
	}
	if err := c.exec.Commit(); err != nil {
		return fmt.Errorf("record: committing transaction: %w", err)
	}
	log.Debugw("transaction committed")
	return nil
}
