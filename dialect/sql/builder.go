package sql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/syssam/record/dialect"
)

// ErrFieldValueMismatch is returned when a field list and a value list differ in length.
var ErrFieldValueMismatch = errors.New("dialect/sql: fields and values differ in length")

// Builder renders identifiers, literals and WHERE clauses for one dialect.
// Placeholders are always written as "?" and rebound on the way out.
type Builder struct {
	dialect string
}

// Dialect returns a Builder for the given dialect name.
func Dialect(name string) (Builder, error) {
	if err := dialect.Validate(name); err != nil {
		return Builder{}, err
	}
	return Builder{dialect: name}, nil
}

// Name returns the dialect name of the builder.
func (b Builder) Name() string { return b.dialect }

// Quote wraps a table or column name in the dialect identifier quoting.
// Dotted names are quoted per segment and "*" is left untouched.
func (b Builder) Quote(ident string) string {
	if strings.Contains(ident, ".") {
		parts := strings.Split(ident, ".")
		for i, p := range parts {
			parts[i] = b.quote(p)
		}
		return strings.Join(parts, ".")
	}
	return b.quote(ident)
}

func (b Builder) quote(ident string) string {
	if ident == "*" {
		return ident
	}
	switch b.dialect {
	case dialect.MySQL:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	case dialect.SQLite:
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	default:
		return ident
	}
}

// EscapeLiteral renders v as an SQL literal. Bound parameters are preferred
// everywhere; this is for the rare spots where binding is not available.
func (b Builder) EscapeLiteral(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if b.dialect == dialect.Postgres {
			return strconv.FormatBool(v)
		}
		if v {
			return "1"
		}
		return "0"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []byte:
		return b.escapeString(string(v))
	case time.Time:
		return b.escapeString(v.Format("2006-01-02 15:04:05.999999"))
	case string:
		return b.escapeString(v)
	default:
		return b.escapeString(fmt.Sprint(v))
	}
}

func (b Builder) escapeString(s string) string {
	if b.dialect == dialect.MySQL {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// EqualityClause builds an AND-ed equality clause for fields and values.
// A nil value renders as "IS NULL" and is dropped from the bound arguments.
// Field order is preserved. Zero fields yield an empty clause.
func (b Builder) EqualityClause(fields []string, values []any) (string, []any, error) {
	if len(fields) != len(values) {
		return "", nil, fmt.Errorf("%w: %d fields, %d values", ErrFieldValueMismatch, len(fields), len(values))
	}
	if len(fields) == 0 {
		return "", nil, nil
	}
	var (
		sb   strings.Builder
		args = make([]any, 0, len(values))
	)
	for i, f := range fields {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(b.Quote(f))
		if values[i] == nil {
			sb.WriteString(" IS NULL")
			continue
		}
		sb.WriteString(" = ?")
		args = append(args, values[i])
	}
	return sb.String(), args, nil
}

// Rebind rewrites "?" placeholders into the dialect bind style.
func (b Builder) Rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(b.dialect), query)
}

// Select renders a SELECT * statement for table with an optional WHERE
// clause and the ordering and paging of opts.
func (b Builder) Select(table, where string, opts dialect.SelectOptions) string {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(b.Quote(table))
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	sb.WriteString(b.OrderLimit(opts))
	return sb.String()
}

// OrderLimit renders the ORDER BY and LIMIT/OFFSET tail for opts, with a
// leading space, or the empty string.
func (b Builder) OrderLimit(opts dialect.SelectOptions) string {
	var sb strings.Builder
	if opts.SortField != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.Quote(opts.SortField))
		if opts.Descending {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	}
	if opts.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", opts.Limit, max(opts.Offset, 0))
	}
	return sb.String()
}

// Insert renders an INSERT statement for the given columns.
func (b Builder) Insert(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = b.Quote(c)
	}
	return "INSERT INTO " + b.Quote(table) +
		" (" + strings.Join(quoted, ", ") + ") VALUES (" + placeholders(len(columns)) + ")"
}

// Update renders an UPDATE statement setting columns, keyed by pk.
func (b Builder) Update(table string, columns []string, pk string) string {
	set := make([]string, len(columns))
	for i, c := range columns {
		set[i] = b.Quote(c) + " = ?"
	}
	return "UPDATE " + b.Quote(table) + " SET " + strings.Join(set, ", ") +
		" WHERE " + b.Quote(pk) + " = ?"
}

// Delete renders a DELETE statement with an optional WHERE clause.
func (b Builder) Delete(table, where string) string {
	q := "DELETE FROM " + b.Quote(table)
	if where != "" {
		q += " WHERE " + where
	}
	return q
}

// Count renders a COUNT(*) statement with an optional WHERE clause.
func (b Builder) Count(table, where string) string {
	q := "SELECT COUNT(*) AS " + b.Quote("num") + " FROM " + b.Quote(table)
	if where != "" {
		q += " WHERE " + where
	}
	return q
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
