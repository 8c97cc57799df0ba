package validate

import (
	"context"

	"github.com/syssam/record"
	"github.com/syssam/record/internal/numeric"
)

type lengthRule int

const (
	ruleMinimum lengthRule = iota + 1
	ruleMaximum
	ruleIn
	ruleIs
)

type lengthValidator struct {
	base
	rule   lengthRule
	lo, hi int
	err    error
}

// Length checks the character count of the value. Exactly one of the
// params "minimum", "maximum", "in" (a two element range) or "is" must be
// given; anything else is a configuration error reported on Validate.
func Length(attr string, params Params, opts ...Option) record.Validator {
	v := lengthValidator{base: newBase(attr, opts)}
	var given []string
	for _, k := range []string{"minimum", "maximum", "in", "is"} {
		if _, ok := params[k]; ok {
			given = append(given, k)
		}
	}
	if len(given) != 1 {
		v.err = record.NewConfigurationError(record.ErrInvalidOption,
			"length of %s: want exactly one of minimum, maximum, in, is; got %v", attr, given)
		return v
	}
	var ok bool
	switch k := given[0]; k {
	case "minimum":
		v.rule = ruleMinimum
		v.lo, ok = intParam(params[k])
	case "maximum":
		v.rule = ruleMaximum
		v.hi, ok = intParam(params[k])
	case "is":
		v.rule = ruleIs
		v.lo, ok = intParam(params[k])
		v.hi = v.lo
	case "in":
		v.rule = ruleIn
		v.lo, v.hi, ok = rangeParam(params[k])
	}
	if !ok {
		v.err = record.NewConfigurationError(record.ErrInvalidOption,
			"length of %s: malformed %q value %v", attr, given[0], params[given[0]])
	}
	return v
}

func intParam(v any) (int, bool) {
	if !numeric.Is(v) {
		return 0, false
	}
	n, ok := numeric.Int64(v)
	return int(n), ok
}

func rangeParam(v any) (lo, hi int, ok bool) {
	var bounds []any
	switch v := v.(type) {
	case [2]int:
		return v[0], v[1], v[0] <= v[1]
	case []int:
		for _, n := range v {
			bounds = append(bounds, n)
		}
	case []any:
		bounds = v
	}
	if len(bounds) != 2 {
		return 0, 0, false
	}
	lo, ok1 := intParam(bounds[0])
	hi, ok2 := intParam(bounds[1])
	return lo, hi, ok1 && ok2 && lo <= hi
}

func (v lengthValidator) Validate(_ context.Context, r *record.Record) (bool, error) {
	if v.err != nil {
		return false, v.err
	}
	n := length(r.Get(v.attr))
	switch v.rule {
	case ruleMinimum:
		return n >= v.lo, nil
	case ruleMaximum:
		return n <= v.hi, nil
	case ruleIs:
		return n == v.lo, nil
	default:
		return n >= v.lo && n <= v.hi, nil
	}
}

func (v lengthValidator) Message(r *record.Record) string {
	switch v.rule {
	case ruleMinimum:
		return v.message("is too short")
	case ruleMaximum:
		return v.message("is too long")
	case ruleIs:
		return v.message("is the wrong length")
	case ruleIn:
		if length(r.Get(v.attr)) < v.lo {
			return v.message("is too short")
		}
		return v.message("is too long")
	default:
		return v.message("is invalid")
	}
}
