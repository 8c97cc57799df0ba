package record

import (
	"context"
	"strings"
)

// BaseAttribute is the attribute of errors that concern the whole record,
// such as a rejected write.
const BaseAttribute = ""

// Validator checks one attribute of a record.
//
// Validate returns false for a validation failure and an error only for a
// misconfigured validator; the error aborts the save.
type Validator interface {
	// Attribute is the attribute the validator checks.
	Attribute() string
	// Validate checks r.
	Validate(ctx context.Context, r *Record) (bool, error)
	// Message is recorded in the errors of r when Validate fails.
	Message(r *Record) string
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc struct {
	Attr string
	Msg  string
	Fn   func(ctx context.Context, r *Record) (bool, error)
}

// Attribute implements Validator.
func (v ValidatorFunc) Attribute() string { return v.Attr }

// Validate implements Validator.
func (v ValidatorFunc) Validate(ctx context.Context, r *Record) (bool, error) { return v.Fn(ctx, r) }

// Message implements Validator.
func (v ValidatorFunc) Message(*Record) string {
	if v.Msg == "" {
		return "is invalid"
	}
	return v.Msg
}

// FieldError is a single validation message.
type FieldError struct {
	Attribute string
	Message   string
}

// FullMessage returns the message prefixed with the humanized attribute,
// e.g. "First name can't be blank".
func (e FieldError) FullMessage() string {
	if e.Attribute == BaseAttribute {
		return e.Message
	}
	return rules.Humanize(e.Attribute) + " " + e.Message
}

// Errors is the ordered list of messages of the last validation.
type Errors []FieldError

// Add appends a message for attr.
func (e *Errors) Add(attr, msg string) {
	*e = append(*e, FieldError{Attribute: attr, Message: msg})
}

// On returns the messages recorded for attr.
func (e Errors) On(attr string) []string {
	var msgs []string
	for _, fe := range e {
		if fe.Attribute == attr {
			msgs = append(msgs, fe.Message)
		}
	}
	return msgs
}

// FullMessages returns every message with its attribute prefix.
func (e Errors) FullMessages() []string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.FullMessage()
	}
	return msgs
}

// Last returns the full message of the most recent error, or "".
func (e Errors) Last() string {
	if len(e) == 0 {
		return ""
	}
	return e[len(e)-1].FullMessage()
}

// Error implements the error interface so a failed save can be reported.
func (e Errors) Error() string {
	return "record: validation failed: " + strings.Join(e.FullMessages(), ", ")
}

// IsValid clears the errors of r, runs the custom validation of its type
// and then every validator in registration order. All validators run even
// after a failure.
func (r *Record) IsValid(ctx context.Context) (bool, error) {
	r.errors = nil
	if r.typ.validate != nil {
		if err := r.typ.validate(ctx, r); err != nil {
			return false, err
		}
	}
	for _, v := range r.typ.validators {
		ok, err := v.Validate(ctx, r)
		if err != nil {
			return false, err
		}
		if !ok {
			r.errors.Add(v.Attribute(), v.Message(r))
		}
	}
	return len(r.errors) == 0, nil
}

// IsInvalid is the negation of IsValid.
func (r *Record) IsInvalid(ctx context.Context) (bool, error) {
	ok, err := r.IsValid(ctx)
	return !ok, err
}

// Errors returns a copy of the messages of the last validation.
func (r *Record) Errors() Errors {
	if len(r.errors) == 0 {
		return nil
	}
	return append(Errors(nil), r.errors...)
}

// AddError records msg for attr. Use BaseAttribute for record wide messages.
func (r *Record) AddError(attr, msg string) {
	r.errors.Add(attr, msg)
}

// LastError returns the full message of the most recent error, or "".
func (r *Record) LastError() string {
	return r.errors.Last()
}
