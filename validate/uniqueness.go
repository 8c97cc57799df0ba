package validate

import (
	"context"

	"github.com/syssam/record"
)

type uniqueness struct{ base }

// Uniqueness requires that no other row of the table holds the same value.
// A persisted record is not compared with its own row.
//
// The check and the following write are not atomic. Concurrent writers
// can both pass; pair it with a unique index to be safe.
func Uniqueness(attr string, opts ...Option) record.Validator {
	return uniqueness{newBase(attr, opts)}
}

func (v uniqueness) Validate(ctx context.Context, r *record.Record) (bool, error) {
	m := r.Model()
	val := r.Get(v.attr)
	where := m.Quote(v.attr) + " = ?"
	args := []any{val}
	if val == nil {
		where = m.Quote(v.attr) + " IS NULL"
		args = nil
	}
	if pk := m.Type().PrimaryKey(); r.IsPersisted() && pk != "" {
		where += " AND " + m.Quote(pk) + " <> ?"
		args = append(args, r.ID())
	}
	others, err := m.Where(ctx, where, args, record.Limit(1))
	if err != nil {
		return false, err
	}
	return len(others) == 0, nil
}

func (v uniqueness) Message(*record.Record) string { return v.message("is not unique") }
