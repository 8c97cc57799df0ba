package record

import (
	"maps"
	"reflect"
	"slices"

	"go.uber.org/zap"
)

// Change is the before and after value of a modified attribute.
type Change struct {
	From any
	To   any
}

// Record is one row of a table held in memory. A record is either new
// or persisted; it is not safe for concurrent use.
type Record struct {
	model *Model
	typ   *Type

	attrs     map[string]any
	changes   map[string]Change
	persisted bool

	errors          Errors
	persistErr      *PersistenceError
	hooksSuppressed bool
}

func newRecord(m *Model) *Record {
	return &Record{
		model: m,
		typ:   m.typ,
		attrs: make(map[string]any),
	}
}

func (r *Record) log() *zap.SugaredLogger { return r.model.client.log }

// Model returns the model the record belongs to.
func (r *Record) Model() *Model { return r.model }

// Type returns the record type.
func (r *Record) Type() *Type { return r.typ }

// Get returns the value of attr, or nil when it is not set.
func (r *Record) Get(attr string) any { return r.attrs[attr] }

// Has reports whether attr is set, even to nil.
func (r *Record) Has(attr string) bool {
	_, ok := r.attrs[attr]
	return ok
}

// Set assigns attr regardless of the accessible list and tracks the change.
func (r *Record) Set(attr string, value any) {
	old, had := r.attrs[attr]
	r.attrs[attr] = value
	if c, ok := r.changes[attr]; ok {
		c.To = value
		r.changes[attr] = c
		return
	}
	if had && reflect.DeepEqual(old, value) {
		return
	}
	if r.changes == nil {
		r.changes = make(map[string]Change)
	}
	r.changes[attr] = Change{From: old, To: value}
}

// Attributes returns a copy of the attribute map.
func (r *Record) Attributes() map[string]any { return maps.Clone(r.attrs) }

// ID returns the primary key value, or nil.
func (r *Record) ID() any {
	if r.typ.pk == "" {
		return nil
	}
	return r.attrs[r.typ.pk]
}

// IsPersisted reports whether the record is backed by a row.
func (r *Record) IsPersisted() bool { return r.persisted }

// IsNew reports whether the record has no backing row.
func (r *Record) IsNew() bool { return !r.persisted }

// Bind assigns the entries of params whose keys are accessible attributes
// and silently drops the rest. Nested maps are flattened into the same
// attribute namespace.
func (r *Record) Bind(params map[string]any) *Record {
	for k, v := range params {
		if nested, ok := v.(map[string]any); ok {
			r.Bind(nested)
			continue
		}
		if r.typ.IsAccessible(k) {
			r.Set(k, v)
		}
	}
	return r
}

// Changed returns the sorted names of the attributes modified since the
// record was loaded or last saved.
func (r *Record) Changed() []string {
	return slices.Sorted(maps.Keys(r.changes))
}

// Changes returns the modified attributes with their old and new values.
func (r *Record) Changes() map[string]Change { return maps.Clone(r.changes) }

// IsChanged reports whether any attribute was modified.
func (r *Record) IsChanged() bool { return len(r.changes) > 0 }

// PersistenceError returns the backend error absorbed by the last save or
// destroy, or nil. It tells a rejected write apart from a validation
// failure without parsing messages.
func (r *Record) PersistenceError() *PersistenceError { return r.persistErr }
