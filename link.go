package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/record/internal/numeric"
)

// ErrNotSaved is returned by Link.Insert when a related record fails to save.
var ErrNotSaved = errors.New("record: not saved")

// Link is a many-to-many relation scoped to one owning record. It is a
// short-lived query and command builder and holds no state of its own.
//
// Targets passed to Has, Attach, Sync and Delete are either a *Record of
// the related type with a numeric primary key or a numeric id.
type Link struct {
	owner      *Record
	related    *Type
	table      string
	ownerKey   string
	relatedKey string
}

// Table returns the pivot table name.
func (l *Link) Table() string { return l.table }

// Keys returns the pivot columns referencing the owner and the related type.
func (l *Link) Keys() (owner, related string) { return l.ownerKey, l.relatedKey }

func (l *Link) client() *Client { return l.owner.model.client }

func (l *Link) pivot() *Model {
	return l.client().Model(l.client().pivotType(l.owner.typ.table, l.related.table, l.table, l.ownerKey, l.relatedKey))
}

// Get returns the related records linked to the owner, optionally
// filtered by equality on related columns.
func (l *Link) Get(ctx context.Context, fields []string, values []any) ([]*Record, error) {
	exec := l.client().exec
	rel := l.related.table
	qualified := make([]string, len(fields))
	for i, f := range fields {
		qualified[i] = rel + "." + f
	}
	extra, extraArgs, err := exec.EqualityClause(qualified, values)
	if err != nil {
		return nil, NewConfigurationError(ErrInvalidOption, "%v", err)
	}
	where, args, err := exec.EqualityClause([]string{l.table + "." + l.ownerKey}, []any{l.owner.ID()})
	if err != nil {
		return nil, err
	}
	if extra != "" {
		where += " AND " + extra
		args = append(args, extraArgs...)
	}
	query := fmt.Sprintf("SELECT %s FROM %s LEFT JOIN %s ON %s = %s WHERE %s",
		exec.Quote(rel+".*"),
		exec.Quote(rel),
		exec.Quote(l.table),
		exec.Quote(rel+"."+l.related.pk),
		exec.Quote(l.table+"."+l.relatedKey),
		where,
	)
	if l.related.pk != "" {
		query += " ORDER BY " + exec.Quote(rel+"."+l.related.pk) + " ASC"
	}
	rows, err := exec.SelectByQuery(ctx, query, args)
	if err != nil {
		return nil, NewQueryError(rel, "link", err)
	}
	return l.client().Model(l.related).loadAll(rows), nil
}

// Count returns the number of pivot rows of the owner.
func (l *Link) Count(ctx context.Context) (int64, error) {
	return l.pivot().Count(ctx, []string{l.ownerKey}, []any{l.owner.ID()})
}

// Has reports whether the owner is linked to target.
func (l *Link) Has(ctx context.Context, target any) (bool, error) {
	id, err := targetID(target)
	if err != nil {
		return false, err
	}
	return l.has(ctx, id)
}

func (l *Link) has(ctx context.Context, id any) (bool, error) {
	n, err := l.pivot().Count(ctx, []string{l.ownerKey, l.relatedKey}, []any{l.owner.ID(), id})
	return n > 0, err
}

// Attach links the owner to target. Attaching an existing link is a no-op
// that reports true.
func (l *Link) Attach(ctx context.Context, target any) (bool, error) {
	id, err := targetID(target)
	if err != nil {
		return false, err
	}
	linked, err := l.has(ctx, id)
	if err != nil || linked {
		return linked, err
	}
	p := newRecord(l.pivot())
	p.Set(l.ownerKey, l.owner.ID())
	p.Set(l.relatedKey, id)
	return p.Save(ctx)
}

// Insert saves a new related record for each entry of rows, links each
// to the owner and returns the new ids in input order. It stops at the
// first record that fails to save.
func (l *Link) Insert(ctx context.Context, rows []map[string]any) ([]any, error) {
	m := l.client().Model(l.related)
	ids := make([]any, 0, len(rows))
	for _, params := range rows {
		rec := m.New(params)
		ok, err := rec.Save(ctx)
		if err != nil {
			return ids, err
		}
		if !ok {
			return ids, fmt.Errorf("%w: %s: %s", ErrNotSaved, l.related.name, rec.LastError())
		}
		ids = append(ids, rec.ID())
		if _, err := l.Attach(ctx, rec); err != nil {
			return ids, err
		}
	}
	return ids, nil
}

// Sync replaces the links of the owner with targets, in order. It reports
// false as soon as one attach fails; links attached before that are kept.
func (l *Link) Sync(ctx context.Context, targets []any) (bool, error) {
	ids := make([]any, len(targets))
	for i, t := range targets {
		id, err := targetID(t)
		if err != nil {
			return false, err
		}
		ids[i] = id
	}
	if _, err := l.Delete(ctx); err != nil {
		return false, err
	}
	for _, id := range ids {
		ok, err := l.Attach(ctx, id)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Delete removes the link to target, or every link of the owner when no
// target is given.
func (l *Link) Delete(ctx context.Context, target ...any) (bool, error) {
	switch len(target) {
	case 0:
		return l.pivot().DestroyBy(ctx, []string{l.ownerKey}, []any{l.owner.ID()})
	case 1:
		id, err := targetID(target[0])
		if err != nil {
			return false, err
		}
		return l.pivot().DestroyBy(ctx, []string{l.ownerKey, l.relatedKey}, []any{l.owner.ID(), id})
	default:
		return false, NewConfigurationError(ErrInvalidOption, "delete takes at most one target, got %d", len(target))
	}
}

// targetID resolves a link target to its numeric id.
func targetID(target any) (any, error) {
	if r, ok := target.(*Record); ok {
		if r != nil && numeric.Is(r.ID()) {
			return r.ID(), nil
		}
		return nil, NewConfigurationError(ErrInvalidPayload, "record without numeric primary key")
	}
	if numeric.Is(target) {
		return target, nil
	}
	return nil, NewConfigurationError(ErrInvalidPayload, "%v (%T)", target, target)
}
