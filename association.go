package record

import (
	"context"
	"slices"
	"strings"

	"github.com/syssam/record/internal/numeric"
)

// BelongsTo returns the related record referenced by this record. The
// reference column defaults to the lower-cased related type name plus
// "_id", e.g. "role_id" for Role. A missing reference is looked up as 0.
func (r *Record) BelongsTo(ctx context.Context, related *Type, foreignKey string) (*Record, error) {
	if foreignKey == "" {
		foreignKey = related.belongsToKey()
	}
	id, _ := numeric.Int64(r.Get(foreignKey))
	return r.model.client.Model(related).Find(ctx, id)
}

// HasOne returns the related record referencing this one. The reference
// column defaults to the foreign key of this record type.
func (r *Record) HasOne(ctx context.Context, related *Type, foreignKey string) (*Record, error) {
	if foreignKey == "" {
		foreignKey = r.typ.ForeignKey()
	}
	return r.model.client.Model(related).FindOne(ctx, []string{foreignKey}, []any{r.ID()})
}

// HasMany returns the related records referencing this one, ordered by
// opts (the related primary key by default).
func (r *Record) HasMany(ctx context.Context, related *Type, foreignKey string, opts ...FindOption) ([]*Record, error) {
	if foreignKey == "" {
		foreignKey = r.typ.ForeignKey()
	}
	return r.model.client.Model(related).FindAll(ctx, []string{foreignKey}, []any{r.ID()}, opts...)
}

// JoinOption configures a many-to-many link.
type JoinOption func(*Link)

// JoinTable overrides the pivot table name.
func JoinTable(name string) JoinOption {
	return func(l *Link) { l.table = name }
}

// OwnerKey overrides the pivot column referencing the owning record.
func OwnerKey(column string) JoinOption {
	return func(l *Link) { l.ownerKey = column }
}

// RelatedKey overrides the pivot column referencing the related records.
func RelatedKey(column string) JoinOption {
	return func(l *Link) { l.relatedKey = column }
}

// HasAndBelongsToMany returns the many-to-many link between this record
// and related. The pivot table defaults to both table names sorted and
// joined with "_", e.g. "roles_users"; the pivot columns default to the
// foreign keys of both types.
func (r *Record) HasAndBelongsToMany(related *Type, opts ...JoinOption) *Link {
	l := &Link{
		owner:      r,
		related:    related,
		ownerKey:   r.typ.ForeignKey(),
		relatedKey: related.ForeignKey(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.table == "" {
		tables := []string{r.typ.table, related.table}
		slices.Sort(tables)
		l.table = strings.Join(tables, "_")
	}
	return l
}
