// Package validate provides the built-in validators of record types.
//
//	record.TypeConfig{
//	    Validators: []record.Validator{
//	        validate.Presence("email"),
//	        validate.Format("email", validate.Params{"with": `^[^@]+@[^@]+$`}),
//	        validate.Length("password", validate.Params{"minimum": 8}),
//	        validate.Uniqueness("email", validate.WithMessage("is already taken")),
//	    },
//	}
//
// A failing validator adds its message to the errors of the record. A
// misconfigured validator returns a *record.ConfigurationError, which
// aborts the save.
package validate

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/syssam/record"
	"github.com/syssam/record/internal/numeric"
)

// Params holds rule parameters such as {"minimum": 3}.
type Params map[string]any

// Option configures a validator.
type Option func(*base)

// WithMessage overrides the default message of a validator.
func WithMessage(msg string) Option {
	return func(b *base) { b.msg = msg }
}

type base struct {
	attr string
	msg  string
}

func newBase(attr string, opts []Option) base {
	b := base{attr: attr}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Attribute implements record.Validator.
func (b base) Attribute() string { return b.attr }

func (b base) message(def string) string {
	if b.msg != "" {
		return b.msg
	}
	return def
}

func text(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

type presence struct{ base }

// Presence requires a value that is not nil and not blank after trimming.
func Presence(attr string, opts ...Option) record.Validator {
	return presence{newBase(attr, opts)}
}

func (v presence) Validate(_ context.Context, r *record.Record) (bool, error) {
	val := r.Get(v.attr)
	return val != nil && strings.TrimSpace(text(val)) != "", nil
}

func (v presence) Message(*record.Record) string { return v.message("can't be blank") }

type format struct {
	base
	re  *regexp.Regexp
	err error
}

// Format requires the value to match the regular expression in
// params["with"]. A missing or malformed pattern is a configuration error.
func Format(attr string, params Params, opts ...Option) record.Validator {
	v := format{base: newBase(attr, opts)}
	pattern, ok := params["with"].(string)
	if !ok {
		v.err = record.NewConfigurationError(record.ErrInvalidOption, "format of %s: missing pattern", attr)
		return v
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		v.err = record.NewConfigurationError(record.ErrInvalidOption, "format of %s: %v", attr, err)
		return v
	}
	v.re = re
	return v
}

func (v format) Validate(_ context.Context, r *record.Record) (bool, error) {
	if v.err != nil {
		return false, v.err
	}
	return v.re.MatchString(text(r.Get(v.attr))), nil
}

func (v format) Message(*record.Record) string { return v.message("is invalid") }

// membership reports whether val is in set, with both type and value equal.
func membership(val any, set []any) bool {
	for _, x := range set {
		if reflect.DeepEqual(x, val) {
			return true
		}
	}
	return false
}

func setParam(kind, attr string, params Params) ([]any, error) {
	switch in := params["in"].(type) {
	case []any:
		return in, nil
	case []string:
		set := make([]any, len(in))
		for i, s := range in {
			set[i] = s
		}
		return set, nil
	default:
		return nil, record.NewConfigurationError(record.ErrInvalidOption, "%s of %s: \"in\" must be a list", kind, attr)
	}
}

type inclusion struct {
	base
	set []any
	err error
}

// Inclusion requires the value to be one of params["in"]. Membership is
// strict: 1 and "1" are different values.
func Inclusion(attr string, params Params, opts ...Option) record.Validator {
	set, err := setParam("inclusion", attr, params)
	return inclusion{base: newBase(attr, opts), set: set, err: err}
}

func (v inclusion) Validate(_ context.Context, r *record.Record) (bool, error) {
	if v.err != nil {
		return false, v.err
	}
	return membership(r.Get(v.attr), v.set), nil
}

func (v inclusion) Message(*record.Record) string { return v.message("is not included in the list") }

type exclusion struct {
	base
	set []any
	err error
}

// Exclusion requires the value not to be one of params["in"].
func Exclusion(attr string, params Params, opts ...Option) record.Validator {
	set, err := setParam("exclusion", attr, params)
	return exclusion{base: newBase(attr, opts), set: set, err: err}
}

func (v exclusion) Validate(_ context.Context, r *record.Record) (bool, error) {
	if v.err != nil {
		return false, v.err
	}
	return !membership(r.Get(v.attr), v.set), nil
}

func (v exclusion) Message(*record.Record) string { return v.message("is reserved") }

type numericality struct{ base }

// Numericality requires a number or a string holding one.
func Numericality(attr string, opts ...Option) record.Validator {
	return numericality{newBase(attr, opts)}
}

func (v numericality) Validate(_ context.Context, r *record.Record) (bool, error) {
	return numeric.Is(r.Get(v.attr)), nil
}

func (v numericality) Message(*record.Record) string { return v.message("is not a number") }

type custom struct {
	base
	fn func(ctx context.Context, r *record.Record) bool
}

// Custom requires fn to report true. A nil fn is a configuration error.
func Custom(attr string, fn func(ctx context.Context, r *record.Record) bool, opts ...Option) record.Validator {
	return custom{base: newBase(attr, opts), fn: fn}
}

func (v custom) Validate(ctx context.Context, r *record.Record) (bool, error) {
	if v.fn == nil {
		return false, record.NewConfigurationError(record.ErrInvalidOption, "custom of %s: nil function", v.attr)
	}
	return v.fn(ctx, r), nil
}

func (v custom) Message(*record.Record) string { return v.message("is invalid") }

func length(v any) int {
	return utf8.RuneCountInString(text(v))
}
