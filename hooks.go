package record

import "context"

// BeforeHook runs before a lifecycle phase. Returning false cancels the
// operation and every later phase.
type BeforeHook func(ctx context.Context, r *Record) bool

// AfterHook runs after a lifecycle phase with the outcome of that phase.
// Returning false suppresses every later after-hook on the same record,
// including hooks of later operations.
type AfterHook func(ctx context.Context, r *Record, ok bool) bool

// Hooks holds the lifecycle callbacks of a type. A nil before-hook
// continues; a nil after-hook returns the outcome it was given.
//
// For a save the phases run in this order:
//
//	BeforeSave, BeforeValidation, AfterValidation, BeforeCreate,
//	(insert or update), AfterCreate, AfterSave
//
// Update wraps a save in BeforeUpdate and AfterUpdate; Destroy runs
// BeforeDestroy and AfterDestroy around the delete.
type Hooks struct {
	BeforeSave       BeforeHook
	BeforeValidation BeforeHook
	BeforeCreate     BeforeHook
	BeforeUpdate     BeforeHook
	BeforeDestroy    BeforeHook

	AfterValidation AfterHook
	AfterSave       AfterHook
	AfterCreate     AfterHook
	AfterUpdate     AfterHook
	AfterDestroy    AfterHook
}

func (r *Record) before(ctx context.Context, phase string, h BeforeHook) bool {
	if h == nil || h(ctx, r) {
		return true
	}
	r.log().Debugw("hook cancelled operation", "type", r.typ.name, "hook", phase)
	return false
}

// after runs h unless the record latched after-hooks off, and latches
// them off when h reports false.
func (r *Record) after(ctx context.Context, phase string, h AfterHook, ok bool) {
	if r.hooksSuppressed {
		return
	}
	cont := ok
	if h != nil {
		cont = h(ctx, r, ok)
	}
	if !cont {
		r.hooksSuppressed = true
		r.log().Debugw("after hooks suppressed", "type", r.typ.name, "hook", phase)
	}
}

// HooksSuppressed reports whether an after-hook returned false and
// silenced the after-hooks of this record.
func (r *Record) HooksSuppressed() bool { return r.hooksSuppressed }
