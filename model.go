package record

import (
	"context"

	"github.com/syssam/record/dialect"
)

// Model binds a Type to a Client. It builds new records and runs the
// finders of the type. Finders return nil, not an error, when nothing
// matches.
type Model struct {
	client *Client
	typ    *Type
}

// Type returns the record type of the model.
func (m *Model) Type() *Type { return m.typ }

// Client returns the client of the model.
func (m *Model) Client() *Client { return m.client }

// Quote quotes an identifier for the client dialect, for use in Where.
func (m *Model) Quote(ident string) string { return m.client.exec.Quote(ident) }

// FindOption configures ordering and paging of multi-row finders.
type FindOption func(*dialect.SelectOptions)

// OrderBy sorts by field. The default is the primary key.
func OrderBy(field string) FindOption {
	return func(o *dialect.SelectOptions) { o.SortField = field }
}

// Desc sorts in descending order.
func Desc() FindOption {
	return func(o *dialect.SelectOptions) { o.Descending = true }
}

// Limit caps the number of records.
func Limit(n int) FindOption {
	return func(o *dialect.SelectOptions) { o.Limit = n }
}

// Offset skips n records. It only applies together with Limit.
func Offset(n int) FindOption {
	return func(o *dialect.SelectOptions) { o.Offset = n }
}

func (m *Model) selectOptions(opts []FindOption) dialect.SelectOptions {
	o := dialect.SelectOptions{SortField: m.typ.pk}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns a new record with the accessible entries of params bound.
func (m *Model) New(params map[string]any) *Record {
	r := newRecord(m)
	r.Bind(params)
	return r
}

// load turns a storage row into a persisted record.
func (m *Model) load(row dialect.Row) *Record {
	r := newRecord(m)
	for k, v := range row {
		r.attrs[k] = v
	}
	r.persisted = true
	return r
}

func (m *Model) loadAll(rows []dialect.Row) []*Record {
	records := make([]*Record, len(rows))
	for i, row := range rows {
		records[i] = m.load(row)
	}
	return records
}

// Create binds params to a new record and saves it, running the create
// hooks once. The record is returned even when it was not saved; check
// IsPersisted and Errors.
func (m *Model) Create(ctx context.Context, params map[string]any) (*Record, error) {
	r := m.New(params)
	if _, err := r.create(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Find returns the record whose primary key is id, or nil.
func (m *Model) Find(ctx context.Context, id any) (*Record, error) {
	return m.FindOne(ctx, []string{m.typ.pk}, []any{id})
}

// FindOne returns the first record matching fields and values, or nil.
// With no fields it returns nil.
func (m *Model) FindOne(ctx context.Context, fields []string, values []any) (*Record, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	row, err := m.client.exec.SelectOneByFields(ctx, m.typ.table, fields, values)
	if err != nil {
		return nil, NewQueryError(m.typ.table, "select", err)
	}
	if row == nil {
		return nil, nil
	}
	return m.load(row), nil
}

// FindAll returns the records matching fields and values. With no fields
// it behaves like All.
func (m *Model) FindAll(ctx context.Context, fields []string, values []any, opts ...FindOption) ([]*Record, error) {
	if len(fields) == 0 {
		return m.All(ctx, opts...)
	}
	rows, err := m.client.exec.SelectByFields(ctx, m.typ.table, fields, values, m.selectOptions(opts))
	if err != nil {
		return nil, NewQueryError(m.typ.table, "select", err)
	}
	return m.loadAll(rows), nil
}

// All returns every record of the table.
func (m *Model) All(ctx context.Context, opts ...FindOption) ([]*Record, error) {
	rows, err := m.client.exec.SelectAll(ctx, m.typ.table, m.selectOptions(opts))
	if err != nil {
		return nil, NewQueryError(m.typ.table, "select", err)
	}
	return m.loadAll(rows), nil
}

// Where returns the records matching a raw WHERE fragment with "?"
// placeholders, such as "role_id = ? OR role_id = ?". The fragment is
// passed through as is; never build it from user input.
func (m *Model) Where(ctx context.Context, where string, values []any, opts ...FindOption) ([]*Record, error) {
	rows, err := m.client.exec.SelectWhere(ctx, m.typ.table, where, values, m.selectOptions(opts))
	if err != nil {
		return nil, NewQueryError(m.typ.table, "where", err)
	}
	return m.loadAll(rows), nil
}

// Selection is the result of First and Last. When a single record was
// asked for, Single is set and Record holds it (or nil); otherwise
// Records holds up to the requested number of records.
type Selection struct {
	Single  bool
	Record  *Record
	Records []*Record
}

// First returns the n records with the lowest primary keys.
func (m *Model) First(ctx context.Context, n int) (Selection, error) {
	return m.edge(ctx, n, false)
}

// Last returns the n records with the highest primary keys, highest first.
func (m *Model) Last(ctx context.Context, n int) (Selection, error) {
	return m.edge(ctx, n, true)
}

func (m *Model) edge(ctx context.Context, n int, desc bool) (Selection, error) {
	opts := []FindOption{Limit(n)}
	if desc {
		opts = append(opts, Desc())
	}
	records, err := m.All(ctx, opts...)
	if err != nil {
		return Selection{}, err
	}
	if n != 1 {
		return Selection{Records: records}, nil
	}
	s := Selection{Single: true}
	if len(records) > 0 {
		s.Record = records[0]
	}
	return s, nil
}

// FindOrInitializeBy returns the record matching fields and values, or a
// new unsaved record with those fields bound. Fields outside the type's
// accessible list are left unset.
func (m *Model) FindOrInitializeBy(ctx context.Context, fields []string, values []any) (*Record, error) {
	r, err := m.FindOne(ctx, fields, values)
	if err != nil || r != nil {
		return r, err
	}
	if len(fields) != len(values) {
		return nil, NewConfigurationError(ErrInvalidOption, "%d fields, %d values", len(fields), len(values))
	}
	params := make(map[string]any, len(fields))
	for i, f := range fields {
		params[f] = values[i]
	}
	return newRecord(m).Bind(params), nil
}

// FindOrCreateBy is FindOrInitializeBy followed by a create when nothing
// matched.
func (m *Model) FindOrCreateBy(ctx context.Context, fields []string, values []any) (*Record, error) {
	r, err := m.FindOrInitializeBy(ctx, fields, values)
	if err != nil || r.IsPersisted() {
		return r, err
	}
	if _, err := r.create(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Count returns the number of records matching fields and values.
func (m *Model) Count(ctx context.Context, fields []string, values []any) (int64, error) {
	n, err := m.client.exec.Count(ctx, m.typ.table, fields, values)
	if err != nil {
		return 0, NewQueryError(m.typ.table, "count", err)
	}
	return n, nil
}

// DestroyBy deletes every row matching fields and values without loading
// records, so no hooks run.
func (m *Model) DestroyBy(ctx context.Context, fields []string, values []any) (bool, error) {
	ok, err := m.client.exec.DeleteWhere(ctx, m.typ.table, fields, values)
	if err != nil {
		return false, NewPersistenceError("delete", m.typ.table, err)
	}
	return ok, nil
}
