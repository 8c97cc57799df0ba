package record

import (
	"context"

	"github.com/syssam/record/dialect"
)

type saveConfig struct {
	validate bool
}

// SaveOption configures Save.
type SaveOption func(*saveConfig)

// WithoutValidation skips the validation phase and its hooks.
func WithoutValidation() SaveOption {
	return func(c *saveConfig) { c.validate = false }
}

// Save validates the record and inserts or updates it.
//
// It returns false without error when a before-hook cancels, validation
// fails or the backend rejects the write; the rejection is recorded in
// Errors and PersistenceError. Errors are returned only for configuration
// problems and failed reads.
func (r *Record) Save(ctx context.Context, opts ...SaveOption) (bool, error) {
	cfg := saveConfig{validate: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return r.save(ctx, cfg, false)
}

// save runs the save state machine. createHooks reports that the caller
// already ran BeforeCreate and will run AfterCreate itself.
func (r *Record) save(ctx context.Context, cfg saveConfig, createHooks bool) (bool, error) {
	h := r.typ.hooks
	r.persistErr = nil
	if !r.before(ctx, "before_save", h.BeforeSave) {
		return false, nil
	}
	if cfg.validate {
		if !r.before(ctx, "before_validation", h.BeforeValidation) {
			return false, nil
		}
		valid, err := r.IsValid(ctx)
		if err != nil {
			return false, err
		}
		r.after(ctx, "after_validation", h.AfterValidation, valid)
		if !valid {
			return false, nil
		}
	}

	creating := r.IsNew()
	if creating && !createHooks && !r.before(ctx, "before_create", h.BeforeCreate) {
		return false, nil
	}
	row, err := r.row(ctx)
	if err != nil {
		return false, err
	}

	var ok bool
	if creating {
		ok, err = r.insert(ctx, row)
	} else {
		ok, err = r.update(ctx, row)
	}
	if err != nil {
		r.absorb(creatingOp(creating), err)
		r.after(ctx, "after_save", h.AfterSave, false)
		return false, nil
	}
	if ok {
		r.persisted = true
		r.changes = nil
	}
	if creating && !createHooks {
		r.after(ctx, "after_create", h.AfterCreate, ok)
	}
	r.after(ctx, "after_save", h.AfterSave, ok)
	return ok, nil
}

func creatingOp(creating bool) string {
	if creating {
		return "insert"
	}
	return "update"
}

func (r *Record) insert(ctx context.Context, row dialect.Row) (bool, error) {
	id, err := r.model.client.exec.Insert(ctx, r.typ.table, row, r.typ.pk)
	if err != nil {
		return false, err
	}
	if id != nil && r.typ.pk != "" && r.attrs[r.typ.pk] == nil {
		r.attrs[r.typ.pk] = id
	}
	return true, nil
}

func (r *Record) update(ctx context.Context, row dialect.Row) (bool, error) {
	return r.model.client.exec.Update(ctx, r.typ.table, row, r.typ.pk)
}

// absorb turns a backend error into a record error.
func (r *Record) absorb(op string, err error) {
	r.persistErr = NewPersistenceError(op, r.typ.table, err)
	r.errors.Add(BaseAttribute, err.Error())
	r.log().Debugw("write rejected",
		"type", r.typ.name,
		"op", op,
		"kind", r.persistErr.Kind.String(),
		"error", err,
	)
}

// row returns the attributes to write: one entry per schema column,
// unset attributes as nil and a nil primary key left out.
func (r *Record) row(ctx context.Context) (dialect.Row, error) {
	cols, err := r.model.client.Schema(ctx, r.typ)
	if err != nil {
		return nil, err
	}
	row := make(dialect.Row, len(cols))
	for _, c := range cols {
		row[c.Name] = r.attrs[c.Name]
	}
	if pk := r.typ.pk; pk != "" && row[pk] == nil {
		delete(row, pk)
	}
	return row, nil
}

// create runs BeforeCreate, a save and AfterCreate.
func (r *Record) create(ctx context.Context) (bool, error) {
	h := r.typ.hooks
	if !r.before(ctx, "before_create", h.BeforeCreate) {
		return false, nil
	}
	ok, err := r.save(ctx, saveConfig{validate: true}, true)
	if err != nil {
		return false, err
	}
	r.after(ctx, "after_create", h.AfterCreate, ok)
	return ok, nil
}

// Update binds the accessible entries of params and saves the record
// between the BeforeUpdate and AfterUpdate hooks.
func (r *Record) Update(ctx context.Context, params map[string]any) (bool, error) {
	h := r.typ.hooks
	r.Bind(params)
	if !r.before(ctx, "before_update", h.BeforeUpdate) {
		return false, nil
	}
	ok, err := r.save(ctx, saveConfig{validate: true}, false)
	if err != nil {
		return false, err
	}
	r.after(ctx, "after_update", h.AfterUpdate, ok)
	return ok, nil
}

// Create binds the accessible entries of params and saves the record
// between the BeforeCreate and AfterCreate hooks.
func (r *Record) Create(ctx context.Context, params map[string]any) (bool, error) {
	r.Bind(params)
	return r.create(ctx)
}

// Destroy deletes the backing row. It returns false for a new record and
// when the backend rejects the delete. A new record never reaches the
// AfterDestroy hook. The in-memory record stays usable and becomes new
// again.
func (r *Record) Destroy(ctx context.Context) (bool, error) {
	h := r.typ.hooks
	if !r.before(ctx, "before_destroy", h.BeforeDestroy) {
		return false, nil
	}
	if !r.persisted {
		return false, nil
	}
	r.persistErr = nil
	ok, err := r.model.client.exec.Delete(ctx, r.typ.table, r.ID(), r.typ.pk)
	if err != nil {
		r.absorb("delete", err)
		ok = false
	}
	if ok {
		r.persisted = false
	}
	r.after(ctx, "after_destroy", h.AfterDestroy, ok)
	return ok, nil
}

// Reload replaces the attributes with the stored row.
func (r *Record) Reload(ctx context.Context) error {
	if r.IsNew() {
		return NewNotFoundError(r.typ.name, r.ID())
	}
	fresh, err := r.model.Find(ctx, r.ID())
	if err != nil {
		return err
	}
	if fresh == nil {
		return NewNotFoundError(r.typ.name, r.ID())
	}
	r.attrs = fresh.attrs
	r.changes = nil
	r.persisted = true
	return nil
}
