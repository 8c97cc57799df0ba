package record

import (
	"errors"
	"fmt"

	"github.com/syssam/record/dialect/sql"
)

// Standard sentinel errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	// Finders return nil instead; it is used by Reload and by callers who
	// want an error value.
	ErrNotFound = errors.New("record: not found")

	// ErrNoConnection is returned when a client is used without an executor.
	ErrNoConnection = errors.New("record: connection not established")

	// ErrUnsupportedDialect is returned for a backend other than MySQL,
	// PostgreSQL or SQLite.
	ErrUnsupportedDialect = errors.New("record: unsupported dialect")

	// ErrInvalidOption is returned for a malformed validator or type option.
	ErrInvalidOption = errors.New("record: invalid option")

	// ErrInvalidPayload is returned when an association target is neither
	// a record nor a numeric id.
	ErrInvalidPayload = errors.New("record: invalid payload")

	// ErrTxStarted is returned when attempting to start a new transaction
	// within an existing transaction.
	ErrTxStarted = sql.ErrTxStarted
)

// ConfigurationError reports a programmer or deployment mistake. It is
// never absorbed by the lifecycle and never retried.
type ConfigurationError struct {
	Reason error  // One of the sentinel errors above
	Detail string // Human readable context
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%v: %s", e.Reason, e.Detail)
}

// Unwrap returns the sentinel reason.
func (e *ConfigurationError) Unwrap() error {
	return e.Reason
}

// NewConfigurationError returns a ConfigurationError for reason.
func NewConfigurationError(reason error, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e)
}

// PersistenceError reports a write rejected by the backend.
type PersistenceError struct {
	Op    string        // insert, update or delete
	Table string        // Table written to
	Kind  sql.ErrorKind // Constraint classification of Err
	Err   error         // Underlying backend error
}

// Error returns the error string.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("record: %s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError returns a PersistenceError with Kind classified from err.
func NewPersistenceError(op, table string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Table: table, Kind: sql.ClassifyError(err), Err: err}
}

// IsPersistenceError returns true if the error is a PersistenceError.
func IsPersistenceError(err error) bool {
	if err == nil {
		return false
	}
	var e *PersistenceError
	return errors.As(err, &e)
}

// IsUniqueViolation reports whether err is a PersistenceError caused by a
// unique constraint.
func IsUniqueViolation(err error) bool {
	var e *PersistenceError
	return errors.As(err, &e) && e.Kind == sql.KindUnique
}

// QueryError wraps a failed read with additional context.
type QueryError struct {
	Table string // Table being queried
	Op    string // Operation (e.g., "select", "count", "schema")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("record: querying %s (%s): %v", e.Table, e.Op, e.Err)
	}
	return fmt.Sprintf("record: querying %s: %v", e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(table, op string, err error) *QueryError {
	return &QueryError{Table: table, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// NotFoundError represents an error when a record is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("record: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("record: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the type name.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given type name.
func NewNotFoundError(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Error returned by the rollback itself
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("record: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}
